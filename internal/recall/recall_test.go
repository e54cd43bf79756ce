package recall

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rcliao/emergent-mind/internal/embedding"
	"github.com/rcliao/emergent-mind/internal/model"
	"github.com/rcliao/emergent-mind/internal/store"
)

// fakeSource holds fixed vectors and embeds queries by lookup.
type fakeSource struct {
	entries []store.Entry
	queries map[string]embedding.Vector
	calls   int
}

func (f *fakeSource) Entries() []store.Entry { return f.entries }

func (f *fakeSource) EmbedQuery(_ context.Context, text string) (embedding.Vector, error) {
	f.calls++
	v, ok := f.queries[text]
	if !ok {
		return nil, fmt.Errorf("%w: no vector for %q", model.ErrEmbedding, text)
	}
	return v, nil
}

func (f *fakeSource) add(text string, v embedding.Vector) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.entries = append(f.entries, store.Entry{
		Record: model.Record{
			ID:        text,
			Kind:      model.KindPerception,
			Text:      text,
			Timestamp: base.Add(time.Duration(len(f.entries)) * time.Minute),
		},
		Vector: v,
	})
}

func TestSelectDiverseRelaxation(t *testing.T) {
	src := &fakeSource{}
	src.add("dissimilar", embedding.Vector{0, 1, 0})
	src.add("same-1", embedding.Vector{1, 0, 0})
	src.add("same-2", embedding.Vector{1, 0.01, 0})
	src.add("same-3", embedding.Vector{1, 0, 0.01})

	got := SelectDiverse(src, 3, 0.9)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %v", got)
	}
	seen := map[string]bool{}
	for _, g := range got {
		if seen[g] {
			t.Errorf("duplicate %q in %v", g, got)
		}
		seen[g] = true
	}
	if !seen["dissimilar"] || !seen["same-3"] {
		t.Errorf("expected newest and dissimilar records, got %v", got)
	}
	if got[0] != "dissimilar" {
		t.Errorf("expected chronological order, got %v", got)
	}
}

func TestSelectDiverseStrictPass(t *testing.T) {
	src := &fakeSource{}
	src.add("x", embedding.Vector{1, 0, 0})
	src.add("y", embedding.Vector{0, 1, 0})
	src.add("x-again", embedding.Vector{1, 0, 0})
	src.add("z", embedding.Vector{0, 0, 1})

	got := SelectDiverse(src, 3, 0.9)
	want := []string{"y", "x-again", "z"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSelectDiverseBounds(t *testing.T) {
	src := &fakeSource{}
	if got := SelectDiverse(src, 3, 0.9); got == nil || len(got) != 0 {
		t.Errorf("empty store: got %#v", got)
	}

	src.add("only", embedding.Vector{1, 0})
	if got := SelectDiverse(src, 5, 0.9); len(got) != 1 {
		t.Errorf("small store: got %v", got)
	}
	if got := SelectDiverse(src, 0, 0.9); len(got) != 0 {
		t.Errorf("n=0: got %v", got)
	}
}

func TestRankOrderAndDeterminism(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{queries: map[string]embedding.Vector{"q": {1, 0}}}
	src.add("match-old", embedding.Vector{1, 0})
	src.add("orthogonal", embedding.Vector{0, 1})
	src.add("opposite", embedding.Vector{-1, 0})
	src.add("match-new", embedding.Vector{1, 0})

	first, err := TopK(ctx, src, "q", 3, DefaultRankOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 3 || first[2] != "match-new" {
		t.Fatalf("expected best last, got %v", first)
	}
	for i := 0; i < 5; i++ {
		again, _ := TopK(ctx, src, "q", 3, DefaultRankOptions())
		if fmt.Sprint(again) != fmt.Sprint(first) {
			t.Fatalf("run %d: %v != %v", i, again, first)
		}
	}

	ranked, _ := Rank(ctx, src, "q", 4, DefaultRankOptions())
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score < ranked[i-1].Score {
			t.Errorf("not ascending at %d: %v", i, ranked)
		}
	}
}

func TestRankRecencyModes(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{queries: map[string]embedding.Vector{"q": {1, 0}}}
	src.add("a", embedding.Vector{0, 1})
	src.add("b", embedding.Vector{0, 1})

	tests := []struct {
		decay     Decay
		wantNew   float64
		wantOlder float64
	}{
		{DecayLinear, 1.0, 0.5},
		{DecayExp, 1.0, 0.9048},
	}
	for _, tt := range tests {
		t.Run(string(tt.decay), func(t *testing.T) {
			opts := DefaultRankOptions()
			opts.Decay = tt.decay
			ranked, err := Rank(ctx, src, "q", 2, opts)
			if err != nil {
				t.Fatal(err)
			}
			if ranked[1].Text != "b" {
				t.Fatalf("expected newer record last, got %v", ranked)
			}
			if d := ranked[1].Recency - tt.wantNew; d > 1e-3 || d < -1e-3 {
				t.Errorf("newest recency = %f, want %f", ranked[1].Recency, tt.wantNew)
			}
			if d := ranked[0].Recency - tt.wantOlder; d > 1e-3 || d < -1e-3 {
				t.Errorf("older recency = %f, want %f", ranked[0].Recency, tt.wantOlder)
			}
			if ranked[0].Similarity != 0.5 {
				t.Errorf("orthogonal similarity should map to 0.5, got %f", ranked[0].Similarity)
			}
		})
	}
}

func TestRankEmptyAndErrors(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{}
	got, err := TopK(ctx, src, "q", 5, DefaultRankOptions())
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty store: %#v, %v", got, err)
	}
	if src.calls != 0 {
		t.Errorf("expected no embed call on empty store")
	}

	src.add("a", embedding.Vector{1, 0})
	if _, err := TopK(ctx, src, "unknown", 5, DefaultRankOptions()); !errors.Is(err, model.ErrEmbedding) {
		t.Errorf("expected ErrEmbedding, got %v", err)
	}
}

func TestParseDecay(t *testing.T) {
	for in, want := range map[string]Decay{"": DecayLinear, "linear": DecayLinear, "exp": DecayExp} {
		if got, err := ParseDecay(in); err != nil || got != want {
			t.Errorf("ParseDecay(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDecay("cubic"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
