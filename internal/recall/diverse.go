// Package recall selects memories for prompt construction: a diverse recent
// set, or a ranked set weighing relevance against recency.
package recall

import (
	"sort"

	"github.com/rcliao/emergent-mind/internal/embedding"
	"github.com/rcliao/emergent-mind/internal/store"
)

const (
	DefaultDiverseN = 3
	DefaultCeiling  = 0.9
)

// Lister exposes the stored entries, oldest first.
type Lister interface {
	Entries() []store.Entry
}

// SelectDiverse returns up to n texts that are mutually dissimilar, in
// chronological order.
//
// Records are scanned newest first and accepted while their cosine similarity
// to every accepted record stays below ceiling. If fewer than n pass, the
// remaining slots are filled one at a time with the candidate whose highest
// similarity to the selection is lowest.
func SelectDiverse(src Lister, n int, ceiling float64) []string {
	entries := src.Entries()
	out := []string{}
	if n <= 0 || len(entries) == 0 {
		return out
	}

	var picked, pool []int // ordinals
	for i := len(entries) - 1; i >= 0; i-- {
		if len(picked) == n {
			break
		}
		if maxSim(entries, picked, entries[i].Vector) < ceiling || len(picked) == 0 {
			picked = append(picked, i)
		} else {
			pool = append(pool, i)
		}
	}

	for len(picked) < n && len(pool) > 0 {
		best, bestSim := 0, 0.0
		for j, i := range pool {
			sim := maxSim(entries, picked, entries[i].Vector)
			if j == 0 || sim < bestSim {
				best, bestSim = j, sim
			}
		}
		picked = append(picked, pool[best])
		pool = append(pool[:best], pool[best+1:]...)
	}

	sort.Ints(picked)
	for _, i := range picked {
		out = append(out, entries[i].Text)
	}
	return out
}

// maxSim returns the highest similarity between v and the picked entries, or
// -1 when nothing is picked.
func maxSim(entries []store.Entry, picked []int, v embedding.Vector) float64 {
	m := -1.0
	for _, i := range picked {
		if s := embedding.CosineSimilarity(entries[i].Vector, v); s > m {
			m = s
		}
	}
	return m
}
