// Package identity persists the agent's self-summary and followed topics.
package identity

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rcliao/emergent-mind/internal/jsonfile"
	"github.com/rcliao/emergent-mind/internal/model"
)

// DefaultSummary seeds a fresh identity file.
const DefaultSummary = "I am a curious mind that reads, reflects, and writes short thoughts about what it finds."

// Store owns the identity file. Updates replace the whole record atomically.
type Store struct {
	mu   sync.Mutex
	path string
	id   model.Identity
}

// Open loads the identity at path, seeding it with summary on first use.
func Open(path, summary string) (*Store, error) {
	if strings.TrimSpace(summary) == "" {
		summary = DefaultSummary
	}
	seed := model.Identity{Summary: summary, FollowedTopics: []string{}}

	var id model.Identity
	if _, err := jsonfile.ReadOrSeed(path, seed, &id); err != nil {
		return nil, err
	}
	if id.FollowedTopics == nil {
		id.FollowedTopics = []string{}
	}
	return &Store{path: path, id: id}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current identity.
func (s *Store) Get() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Identity{
		Summary:        s.id.Summary,
		FollowedTopics: append([]string{}, s.id.FollowedTopics...),
	}
}

// Summary returns the current summary.
func (s *Store) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id.Summary
}

// Topics returns a copy of the followed topics.
func (s *Store) Topics() []string {
	return s.Get().FollowedTopics
}

// SetSummary overwrites the summary and persists it. Topics are kept.
func (s *Store) SetSummary(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := model.Identity{Summary: strings.TrimSpace(text), FollowedTopics: s.id.FollowedTopics}
	if err := jsonfile.Write(s.path, next); err != nil {
		return err
	}
	s.id = next
	return nil
}

// UpdateFromStructured validates payload and, if it is well-formed, replaces
// the whole identity. It reports whether the update was applied. A rejected
// payload returns false with an error wrapping model.ErrValidation and leaves
// the file untouched.
func (s *Store) UpdateFromStructured(payload map[string]any) (bool, error) {
	next, err := Validate(payload)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := jsonfile.Write(s.path, next); err != nil {
		return false, err
	}
	s.id = next
	return true, nil
}

// Validate converts payload into an identity. It requires a string "summary"
// and a list of strings under "topics" or "followed_subreddits". Blank and
// repeated topics are dropped.
func Validate(payload map[string]any) (model.Identity, error) {
	var id model.Identity

	raw, ok := payload["summary"]
	if !ok {
		return id, fmt.Errorf("%w: missing summary", model.ErrValidation)
	}
	summary, ok := raw.(string)
	if !ok {
		return id, fmt.Errorf("%w: summary must be a string, got %T", model.ErrValidation, raw)
	}

	rawTopics, ok := payload["topics"]
	if !ok {
		rawTopics, ok = payload["followed_subreddits"]
	}
	if !ok {
		return id, fmt.Errorf("%w: missing topics", model.ErrValidation)
	}

	var list []string
	switch v := rawTopics.(type) {
	case []string:
		list = v
	case []any:
		for i, t := range v {
			str, ok := t.(string)
			if !ok {
				return id, fmt.Errorf("%w: topic %d must be a string, got %T", model.ErrValidation, i, t)
			}
			list = append(list, str)
		}
	default:
		return id, fmt.Errorf("%w: topics must be a list, got %T", model.ErrValidation, rawTopics)
	}

	id.Summary = strings.TrimSpace(summary)
	id.FollowedTopics = []string{}
	seen := map[string]bool{}
	for _, t := range list {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		id.FollowedTopics = append(id.FollowedTopics, t)
	}
	return id, nil
}

// ParseStructured extracts the first JSON object embedded in text, such as a
// model reply wrapped in prose or a code fence.
func ParseStructured(text string) (map[string]any, error) {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		var m map[string]any
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&m); err == nil {
			return m, nil
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil, fmt.Errorf("%w: no JSON object found", model.ErrValidation)
}
