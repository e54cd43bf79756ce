// Package model defines the core data types shared by the memory and affect engines.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies a memory record. The set is closed.
type Kind string

const (
	KindPerception Kind = "perception"
	KindReflection Kind = "reflection"
	KindTweet      Kind = "tweet"
	KindOther      Kind = "other"
)

// Kinds lists every valid kind in display order.
var Kinds = []Kind{KindPerception, KindReflection, KindTweet, KindOther}

// ParseKind validates s against the closed kind set.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Kinds {
		if k == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: invalid kind %q (valid: perception, reflection, tweet, other)", ErrValidation, s)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, err := ParseKind(string(k))
	return err == nil
}

func (k Kind) String() string { return string(k) }

// Record is one immutable memory entry. It is the shape of a metadata log line.
type Record struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Identity is the agent's persisted self-summary.
type Identity struct {
	Summary        string   `json:"summary"`
	FollowedTopics []string `json:"followed_topics"`
}

// Vocabulary holds the word lists used to build ban-lists plus coined terms.
type Vocabulary struct {
	Stopwords []string          `json:"stopwords"`
	Whitelist []string          `json:"whitelist"`
	Invented  map[string]string `json:"invented"`
}
