package store

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rcliao/emergent-mind/internal/model"
)

// Export writes every record as one JSON object per line, oldest first.
func (s *VectorStore) Export(w io.Writer, kind model.Kind) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	for _, e := range s.entries {
		if kind != "" && e.Kind != kind {
			continue
		}
		if err := enc.Encode(e.Record); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Import adds texts as new records of kind, re-embedding each one. Blank
// texts are skipped and not counted. It stops at the first failure.
func (s *VectorStore) Import(ctx context.Context, texts []string, kind model.Kind) (int, error) {
	imported := 0
	for _, t := range texts {
		rec, err := s.AddMemory(ctx, t, kind)
		if err != nil {
			return imported, err
		}
		if rec != nil {
			imported++
		}
	}
	return imported, nil
}
