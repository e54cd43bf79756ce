package store

import (
	"os"
	"path/filepath"

	"github.com/rcliao/emergent-mind/internal/model"
)

// Stats holds store statistics.
type Stats struct {
	Dir          string      `json:"dir"`
	Dims         int         `json:"dims"`
	Total        int         `json:"total"`
	Kinds        []KindStats `json:"kinds"`
	LogBytes     int64       `json:"log_bytes"`
	IndexBytes   int64       `json:"index_bytes"`
	RepairedTail int         `json:"repaired_tail,omitempty"`
}

// KindStats holds per-kind counts.
type KindStats struct {
	Kind  model.Kind `json:"kind"`
	Count int        `json:"count"`
}

// Stats returns store statistics.
func (s *VectorStore) Stats() *Stats {
	st := &Stats{
		Dir:          s.dir,
		Dims:         s.dims,
		Total:        len(s.entries),
		LogBytes:     s.log.size,
		RepairedTail: s.Repaired,
	}
	if info, err := os.Stat(filepath.Join(s.dir, indexFile)); err == nil {
		st.IndexBytes = info.Size()
	}

	counts := map[model.Kind]int{}
	for _, e := range s.entries {
		counts[e.Kind]++
	}
	for _, k := range model.Kinds {
		if counts[k] > 0 {
			st.Kinds = append(st.Kinds, KindStats{Kind: k, Count: counts[k]})
		}
	}
	return st
}
