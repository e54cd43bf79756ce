package store

import (
	"context"
	"sort"

	"github.com/rcliao/emergent-mind/internal/embedding"
)

// Search scores every record of the requested kind by cosine similarity to
// the query and returns the best K, most similar first. Ties keep insertion
// order. An empty store returns no matches without calling the embedder.
func (s *VectorStore) Search(ctx context.Context, p RetrieveParams) ([]Match, error) {
	k := p.K
	if k <= 0 {
		k = DefaultRetrieveK
	}
	if len(s.entries) == 0 {
		return []Match{}, nil
	}

	q, err := s.embed(ctx, p.Query)
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, e := range s.entries {
		if p.Kind != "" && e.Kind != p.Kind {
			continue
		}
		matches = append(matches, Match{
			Record: e.Record,
			Score:  embedding.CosineSimilarity(q, e.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}

// Retrieve returns the texts of Search.
func (s *VectorStore) Retrieve(ctx context.Context, p RetrieveParams) ([]string, error) {
	matches, err := s.Search(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Text
	}
	return out, nil
}
