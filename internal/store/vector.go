package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/emergent-mind/internal/embedding"
	"github.com/rcliao/emergent-mind/internal/model"
)

// Options tunes a VectorStore.
type Options struct {
	// Dims fixes the embedding dimension. Zero lets the first stored vector
	// establish it.
	Dims int
	Rand *rand.Rand
	Now  func() time.Time
}

// VectorStore implements Memory over a metadata log and a SQLite vector index.
// All records and vectors are kept in memory after Open.
type VectorStore struct {
	dir      string
	embedder embedding.Embedder
	index    *vectorIndex
	log      *metaLog
	dims     int
	entries  []Entry
	entropy  *rand.Rand
	rng      *rand.Rand
	now      func() time.Time
	broken   error

	// Repaired reports how many trailing records Open dropped to realign
	// the log and the index.
	Repaired int
}

var _ Memory = (*VectorStore)(nil)

// Open opens or creates the store in dir and realigns its two artifacts.
func Open(ctx context.Context, dir string, e embedding.Embedder, opts Options) (*VectorStore, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: no embedder configured", model.ErrInvalidState)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store dir: %v", model.ErrStorage, err)
	}

	log, recs, err := readLog(filepath.Join(dir, logFile))
	if err != nil {
		return nil, err
	}
	index, err := openIndex(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, err
	}
	vecs, err := index.load(ctx)
	if err != nil {
		index.close()
		return nil, err
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &VectorStore{
		dir:      dir,
		embedder: e,
		index:    index,
		log:      log,
		dims:     opts.Dims,
		entropy:  rand.New(rand.NewSource(opts.Rand.Int63())),
		rng:      opts.Rand,
		now:      opts.Now,
	}

	if err := s.realign(ctx, recs, vecs); err != nil {
		index.close()
		return nil, err
	}
	return s, nil
}

// realign truncates the longer artifact to match the shorter one, then checks
// that every stored vector has the configured dimension.
func (s *VectorStore) realign(ctx context.Context, recs []model.Record, vecs []embedding.Vector) error {
	n := len(recs)
	if len(vecs) < n {
		n = len(vecs)
	}
	s.Repaired = len(recs) - n

	var onDisk int64
	if info, err := os.Stat(s.log.path); err == nil {
		onDisk = info.Size()
	}
	if n < len(recs) || onDisk != s.log.size {
		if err := s.log.rewrite(recs[:n]); err != nil {
			return err
		}
	}
	if err := s.index.truncate(ctx, n); err != nil {
		return err
	}

	s.entries = make([]Entry, n)
	for i := 0; i < n; i++ {
		if s.dims == 0 {
			s.dims = len(vecs[i])
		}
		if len(vecs[i]) != s.dims {
			return fmt.Errorf("%w: stored vector %d has %d dims, want %d",
				model.ErrDimensionMismatch, i, len(vecs[i]), s.dims)
		}
		s.entries[i] = Entry{Record: recs[i], Vector: vecs[i]}
	}
	return nil
}

// Dir returns the store directory.
func (s *VectorStore) Dir() string { return s.dir }

// Dims returns the established embedding dimension, or 0 if none yet.
func (s *VectorStore) Dims() int { return s.dims }

func (s *VectorStore) Len() int { return len(s.entries) }

func (s *VectorStore) Close() error { return s.index.close() }

func (s *VectorStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// embed calls the embedder and checks the result against the store dimension.
func (s *VectorStore) embed(ctx context.Context, text string) (embedding.Vector, error) {
	v, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrEmbedding, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty vector", model.ErrEmbedding)
	}
	if s.dims != 0 && len(v) != s.dims {
		return nil, fmt.Errorf("%w: got %d want %d", model.ErrDimensionMismatch, len(v), s.dims)
	}
	return v, nil
}

// EmbedQuery embeds text with the same checks applied to stored vectors.
func (s *VectorStore) EmbedQuery(ctx context.Context, text string) (embedding.Vector, error) {
	return s.embed(ctx, text)
}

// AddMemory embeds text and appends it. Metadata is durable before the vector
// is indexed; if indexing fails the metadata line is rolled back. If the
// rollback fails too the store refuses further writes until it is reopened,
// which realigns the log with the index.
func (s *VectorStore) AddMemory(ctx context.Context, text string, kind model.Kind) (*model.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: invalid kind %q", model.ErrValidation, kind)
	}
	if s.broken != nil {
		return nil, fmt.Errorf("%w: store needs reopening: %v", model.ErrInvalidState, s.broken)
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	ts := s.now().UTC()
	if n := len(s.entries); n > 0 && !ts.After(s.entries[n-1].Timestamp) {
		ts = s.entries[n-1].Timestamp.Add(time.Nanosecond)
	}
	rec := model.Record{
		ID:        s.newID(),
		Kind:      kind,
		Text:      text,
		Timestamp: ts,
	}

	prev := s.log.size
	if err := s.log.append(rec); err != nil {
		return nil, err
	}
	if err := s.index.insert(ctx, len(s.entries), vec); err != nil {
		if rerr := s.log.rollback(prev); rerr != nil {
			s.broken = rerr
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}

	if s.dims == 0 {
		s.dims = len(vec)
	}
	s.entries = append(s.entries, Entry{Record: rec, Vector: vec})
	return &rec, nil
}

// Entries returns every entry, oldest first. The slice is a copy; vectors are
// shared and must not be modified.
func (s *VectorStore) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Recent returns up to n texts of kind, newest first. An empty kind matches
// every record.
func (s *VectorStore) Recent(kind model.Kind, n int) []string {
	out := []string{}
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		if kind == "" || s.entries[i].Kind == kind {
			out = append(out, s.entries[i].Text)
		}
	}
	return out
}

// Sample returns up to k texts of kind picked uniformly without replacement.
func (s *VectorStore) Sample(k int, kind model.Kind) []string {
	var pool []int
	for i, e := range s.entries {
		if kind == "" || e.Kind == kind {
			pool = append(pool, i)
		}
	}
	if k > len(pool) {
		k = len(pool)
	}
	out := []string{}
	if k <= 0 {
		return out
	}
	for _, j := range s.rng.Perm(len(pool))[:k] {
		out = append(out, s.entries[pool[j]].Text)
	}
	return out
}
