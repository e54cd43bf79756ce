package recall

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rcliao/emergent-mind/internal/embedding"
	"github.com/rcliao/emergent-mind/internal/model"
)

// Decay selects how recency falls off with age.
type Decay string

const (
	DecayLinear Decay = "linear"
	DecayExp    Decay = "exp"
)

// ParseDecay parses a decay mode name.
func ParseDecay(s string) (Decay, error) {
	switch d := Decay(s); d {
	case DecayLinear, DecayExp:
		return d, nil
	case "":
		return DecayLinear, nil
	}
	return "", fmt.Errorf("%w: unknown decay mode %q (valid: linear, exp)", model.ErrValidation, s)
}

const (
	DefaultTopK          = 5
	DefaultSimWeight     = 0.9
	DefaultRecencyWeight = 0.6

	// DefaultLambda is the exponential decay rate. Ages count from 0 at the
	// newest record, so it always scores exp(0) = 1.
	DefaultLambda = 0.1
)

// RankOptions weighs similarity against recency.
type RankOptions struct {
	SimWeight     float64
	RecencyWeight float64
	Decay         Decay
	Lambda        float64 // exponential decay rate per record of age
}

// DefaultRankOptions returns the stock weights with linear decay.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		SimWeight:     DefaultSimWeight,
		RecencyWeight: DefaultRecencyWeight,
		Decay:         DecayLinear,
		Lambda:        DefaultLambda,
	}
}

// Source is what the ranker reads.
type Source interface {
	Lister
	EmbedQuery(ctx context.Context, text string) (embedding.Vector, error)
}

// Ranked is a scored record.
type Ranked struct {
	model.Record
	Similarity float64 `json:"similarity"`
	Recency    float64 `json:"recency"`
	Score      float64 `json:"score"`
}

// Rank scores every record against query and returns the best k in ascending
// score order, so the most relevant is last. Equal scores rank the newer
// record higher. An empty store returns nothing without embedding the query.
func Rank(ctx context.Context, src Source, query string, k int, opts RankOptions) ([]Ranked, error) {
	entries := src.Entries()
	if len(entries) == 0 || k <= 0 {
		return []Ranked{}, nil
	}
	if opts.Decay == "" {
		opts.Decay = DecayLinear
	}
	if opts.Lambda <= 0 {
		opts.Lambda = DefaultLambda
	}

	q, err := src.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	total := len(entries)
	ranked := make([]Ranked, total)
	for i, e := range entries {
		sim := 0.5 * (1 + embedding.CosineSimilarity(q, e.Vector))

		var rec float64
		switch opts.Decay {
		case DecayExp:
			age := float64(total - 1 - i) // newest has age 0
			rec = math.Exp(-opts.Lambda * age)
		default:
			rec = float64(i+1) / float64(total) // newest scores 1
		}

		ranked[i] = Ranked{
			Record:     e.Record,
			Similarity: sim,
			Recency:    rec,
			Score:      opts.SimWeight*sim + opts.RecencyWeight*rec,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Timestamp.After(ranked[j].Timestamp)
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	for i, j := 0, len(ranked)-1; i < j; i, j = i+1, j-1 {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	}
	return ranked, nil
}

// TopK returns the texts of Rank, best last.
func TopK(ctx context.Context, src Source, query string, k int, opts RankOptions) ([]string, error) {
	ranked, err := Rank(ctx, src, query, k, opts)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Text
	}
	return out, nil
}
