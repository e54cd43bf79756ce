// Package store provides the append-only vector memory store.
//
// A store directory holds two artifacts that must stay in lockstep:
//
//	metadata.jsonl  one {id, kind, text, timestamp} object per line
//	index.db        SQLite table of vectors keyed by the same ordinal
//
// Metadata is appended and synced before the vector row is inserted. Open
// truncates whichever artifact is longer so that ordinal i of the log always
// describes vector i of the index.
//
// The store is single-writer and not safe for concurrent use; callers that
// share it across goroutines must serialize access.
package store

import (
	"context"

	"github.com/rcliao/emergent-mind/internal/embedding"
	"github.com/rcliao/emergent-mind/internal/model"
)

const (
	logFile   = "metadata.jsonl"
	indexFile = "index.db"

	// DefaultRetrieveK is used when RetrieveParams.K is not positive.
	DefaultRetrieveK = 3
)

// Entry pairs a record with its embedding.
type Entry struct {
	model.Record
	Vector embedding.Vector `json:"-"`
}

// RetrieveParams holds parameters for a similarity lookup.
type RetrieveParams struct {
	Query string
	K     int
	Kind  model.Kind // empty means any kind
}

// Match is a retrieved record with its cosine similarity to the query.
type Match struct {
	model.Record
	Score float64 `json:"score"`
}

// Memory is the surface the orchestrator and outer layers use.
type Memory interface {
	// AddMemory embeds and appends text. Blank text is a no-op returning nil.
	AddMemory(ctx context.Context, text string, kind model.Kind) (*model.Record, error)

	// Retrieve returns texts most similar to the query, most similar first.
	Retrieve(ctx context.Context, p RetrieveParams) ([]string, error)

	// Recent returns up to n texts of kind, newest first.
	Recent(kind model.Kind, n int) []string

	// Sample returns up to k texts of kind chosen uniformly without replacement.
	Sample(k int, kind model.Kind) []string

	// Entries returns every entry, oldest first.
	Entries() []Entry

	// EmbedQuery embeds text for comparison against stored vectors.
	EmbedQuery(ctx context.Context, text string) (embedding.Vector, error)

	// Len returns the number of records.
	Len() int

	// Close releases the index.
	Close() error
}
