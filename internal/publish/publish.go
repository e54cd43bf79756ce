// Package publish delivers finished posts.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Post is a finished post.
type Post struct {
	CycleID    string
	Mode       string
	PromptType string
	Text       string
	At         time.Time
}

// Publisher delivers a post somewhere.
type Publisher interface {
	Publish(ctx context.Context, p Post) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, p Post) error {
	var errs []error
	for _, pub := range m {
		if err := pub.Publish(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- File ---

// File appends posts to a plain text log.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a publisher appending to path.
func NewFile(path string) *File { return &File{path: path} }

func (f *File) Publish(_ context.Context, p Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create posts dir: %w", err)
	}
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open posts file: %w", err)
	}
	defer fh.Close()

	at := p.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = fmt.Fprintf(fh, "[%s] %s post --> %q\n\n", at.UTC().Format(time.RFC3339), p.Mode, p.Text)
	if err != nil {
		return fmt.Errorf("write post: %w", err)
	}
	return nil
}

// --- Discord ---

// MaxDiscordMessage is the Discord per-message character limit.
const MaxDiscordMessage = 2000

type channelSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts to one channel, splitting long posts into several messages.
type Discord struct {
	session   channelSender
	closer    func() error
	channelID string
}

// NewDiscord opens a bot session for token.
func NewDiscord(token, channelID string) (*Discord, error) {
	if token == "" || channelID == "" {
		return nil, errors.New("discord token and channel are required")
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Discord{session: dg, closer: dg.Close, channelID: channelID}, nil
}

func (d *Discord) Publish(ctx context.Context, p Post) error {
	for _, chunk := range splitMessage(p.Text, MaxDiscordMessage) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.session.ChannelMessageSend(d.channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord send to %s: %w", d.channelID, err)
		}
	}
	return nil
}

// Close releases the session.
func (d *Discord) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

// splitMessage cuts msg into pieces of at most limit bytes, preferring to
// break at newlines and never inside a UTF-8 sequence.
func splitMessage(msg string, limit int) []string {
	var result []string
	msg = strings.TrimSpace(msg)
	for len(msg) > limit {
		cut := strings.LastIndex(msg[:limit], "\n")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8Start(msg[cut]) {
				cut--
			}
		}
		result = append(result, strings.TrimSpace(msg[:cut]))
		msg = strings.TrimSpace(msg[cut:])
	}
	if msg != "" {
		result = append(result, msg)
	}
	return result
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
