// Package perception reads the feed of posts the agent encounters.
//
// A feed file is a sequence of blocks:
//
//	[Tweet]
//	Author: someone
//	Text: what they wrote
//	---
//
// Lines after Text: that do not start another field continue the text.
package perception

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rcliao/emergent-mind/internal/model"
)

const (
	blockStart = "[Tweet]"
	blockEnd   = "---"
)

// Item is one feed block with its position in the file.
type Item struct {
	Author    string
	Text      string
	StartLine int
	EndLine   int
}

// Valid reports whether the block has both an author and a text.
func (it Item) Valid() bool { return it.Author != "" && it.Text != "" }

// Format renders the item the way it is shown to the model.
func (it Item) Format() string {
	return "@" + it.Author + "\n" + it.Text
}

// Parse splits feed text into blocks. Incomplete blocks are kept so that
// cursor positions stay stable as the file grows.
func Parse(text string) []Item {
	lines := strings.Split(text, "\n")
	var items []Item
	var current []string
	startLine := 1

	flush := func(endLine int) {
		if len(current) > 0 {
			it := parseBlock(current)
			it.StartLine, it.EndLine = startLine, endLine
			items = append(items, it)
		}
		current = nil
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == blockStart:
			current = nil
			startLine = lineNum
		case trimmed == blockEnd:
			flush(lineNum)
			startLine = lineNum + 1
		case trimmed == "" && len(current) == 0:
			startLine = lineNum + 1
		default:
			current = append(current, trimmed)
		}
	}
	flush(len(lines))
	return items
}

func parseBlock(lines []string) Item {
	var it Item
	var text []string
	inText := false
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "Author:"):
			it.Author = strings.TrimSpace(strings.TrimPrefix(line, "Author:"))
			inText = false
		case strings.HasPrefix(line, "Text:"):
			text = []string{strings.TrimSpace(strings.TrimPrefix(line, "Text:"))}
			inText = true
		case inText:
			text = append(text, line)
		}
	}
	it.Text = strings.TrimSpace(strings.Join(text, "\n"))
	return it
}

// Load parses the feed file at path. A missing file is an empty feed.
func Load(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read feed: %v", model.ErrStorage, err)
	}
	return Parse(string(data)), nil
}

// Next returns the item at cursor and the advanced cursor. It reports false
// when the feed is exhausted. The cursor advances past incomplete blocks, in
// which case ok is true and the item is not Valid.
func Next(path string, cursor int) (it Item, next int, ok bool, err error) {
	items, err := Load(path)
	if err != nil {
		return Item{}, cursor, false, err
	}
	if cursor < 0 || cursor >= len(items) {
		return Item{}, cursor, false, nil
	}
	return items[cursor], cursor + 1, true, nil
}

// Texts returns the text of every valid item in the given files, in order.
func Texts(paths ...string) ([]string, error) {
	var out []string
	for _, p := range paths {
		items, err := Load(p)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.Valid() {
				out = append(out, it.Text)
			}
		}
	}
	return out, nil
}
