package weights

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rcliao/emergent-mind/internal/model"
)

// Options tunes a Store. Zero values fall back to the defaults.
type Options struct {
	Decay float64
	Boost float64
	Rand  *rand.Rand
}

// Store owns one persisted mapping. Every mutation is written to disk before
// the in-memory copy changes, so a failed save leaves the store as it was.
type Store struct {
	mu    sync.Mutex
	path  string
	w     Weights
	decay float64
	boost float64
	rng   *rand.Rand
}

// Open loads the mapping at path, seeding it on first use.
func Open(path string, seed Weights, opts Options) (*Store, error) {
	w, err := Load(path, seed)
	if err != nil {
		return nil, err
	}
	if len(w) == 0 {
		return nil, fmt.Errorf("%w: %s has no labels", model.ErrInvalidState, path)
	}

	if opts.Decay <= 0 {
		opts.Decay = DefaultDecay
	}
	if opts.Boost <= 0 {
		opts.Boost = DefaultBoost
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Store{
		path:  path,
		w:     w,
		decay: opts.Decay,
		boost: opts.Boost,
		rng:   opts.Rand,
	}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the current weights.
func (s *Store) Snapshot() Weights {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Clone()
}

// Draw samples a label without updating any weight.
func (s *Store) Draw() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Draw(s.w, s.rng)
}

// Process runs one selection cycle. An empty chosen label means "draw one".
// The chosen label is decayed with the rest and then boosted, and the result
// is persisted. It returns the selected label and a copy of the new weights.
func (s *Store) Process(chosen string) (string, Weights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chosen == "" {
		l, err := Draw(s.w, s.rng)
		if err != nil {
			return "", nil, err
		}
		chosen = l
	} else if _, ok := s.w[chosen]; !ok {
		return "", nil, fmt.Errorf("%w: unknown label %q", model.ErrInvalidState, chosen)
	}

	next := Update(s.w.Clone(), chosen, s.decay, s.boost)
	if err := Save(s.path, next); err != nil {
		return "", nil, err
	}
	s.w = next
	return chosen, next.Clone(), nil
}

// AddLabel inserts label with the given weight if it is absent. It reports
// whether the label was added.
func (s *Store) AddLabel(label string, initial float64) (bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, fmt.Errorf("%w: empty label", model.ErrValidation)
	}
	if initial < 0 {
		return false, fmt.Errorf("%w: negative weight %v", model.ErrValidation, initial)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.w[label]; ok {
		return false, nil
	}
	next := s.w.Clone()
	next[label] = initial
	if err := Save(s.path, next); err != nil {
		return false, err
	}
	s.w = next
	return true, nil
}
