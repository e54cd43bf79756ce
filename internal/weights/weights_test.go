package weights

import (
	"errors"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/rcliao/emergent-mind/internal/model"
)

const tolerance = 1e-9

func newTestStore(t *testing.T, seed Weights) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "weights.json"), seed, Options{Rand: rand.New(rand.NewSource(1))})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestUpdateDecayThenBoost(t *testing.T) {
	w := Weights{"awe": 2.0, "curiosity": 3.0}
	Update(w, "awe", 0.9, 0.5)

	if math.Abs(w["awe"]-2.3) > tolerance {
		t.Errorf("awe = %v, want 2.3", w["awe"])
	}
	if math.Abs(w["curiosity"]-2.7) > tolerance {
		t.Errorf("curiosity = %v, want 2.7", w["curiosity"])
	}
}

func TestUpdateTotalAfterDecayAndBoost(t *testing.T) {
	tests := []struct {
		name   string
		w      Weights
		chosen string
		decay  float64
		boost  float64
	}{
		{"two labels", Weights{"a": 1, "b": 2}, "b", 0.9, 0.5},
		{"many labels", Weights{"a": 0.1, "b": 7, "c": 3.3, "d": 0}, "d", 0.8, 1.2},
		{"single label", Weights{"only": 4}, "only", 0.5, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := tt.w.Clone()
			Update(tt.w, tt.chosen, tt.decay, tt.boost)

			wantTotal := tt.decay*prev.Total() + tt.boost
			if math.Abs(tt.w.Total()-wantTotal) > tolerance {
				t.Errorf("total = %v, want %v", tt.w.Total(), wantTotal)
			}
			for k, v := range prev {
				if k == tt.chosen {
					continue
				}
				if tt.w[k] != tt.decay*v {
					t.Errorf("%s = %v, want exactly %v", k, tt.w[k], tt.decay*v)
				}
			}
		})
	}
}

func TestDrawFrequency(t *testing.T) {
	w := Weights{"dominant": 100, "a": 1, "b": 1, "c": 1}
	rng := rand.New(rand.NewSource(42))

	const n = 20000
	hits := 0
	for i := 0; i < n; i++ {
		l, err := Draw(w, rng)
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if l == "dominant" {
			hits++
		}
	}

	got := float64(hits) / n
	want := 100.0 / 103.0
	if math.Abs(got-want) > 0.05 {
		t.Errorf("dominant frequency = %.3f, want %.3f ±0.05", got, want)
	}
}

func TestDrawInvalidState(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for name, w := range map[string]Weights{
		"empty":    {},
		"all zero": {"a": 0, "b": 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Draw(w, rng)
			if !errors.Is(err, model.ErrInvalidState) {
				t.Errorf("expected ErrInvalidState, got %v", err)
			}
		})
	}
}

func TestDrawSkipsZeroWeights(t *testing.T) {
	w := Weights{"a": 0, "b": 1, "c": 0}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		l, err := Draw(w, rng)
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if l != "b" {
			t.Fatalf("drew zero-weight label %q", l)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mood.json")
	w := Weights{"awe": 1.234567, "melancholy": 0.000001, "joy": 42}
	if err := Save(path, w); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path, Weights{"ignored": 1})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(w) {
		t.Fatalf("expected %d labels, got %d", len(w), len(got))
	}
	for k, v := range w {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestLoadSeedsOnFirstUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curiosity.json")
	seed := Weights{"emergence": 1, "ai": 1}

	got, err := Load(path, seed)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got["emergence"] = 99
	if seed["emergence"] != 1 {
		t.Error("Load returned the seed itself instead of a copy")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("seed was not persisted: %v", err)
	}
}

func TestLoadRejectsNegativeWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{"a": -1}`), 0o644)

	_, err := Load(path, Weights{"a": 1})
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestLoadUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	os.WriteFile(blocker, []byte("x"), 0o644)

	_, err := Load(filepath.Join(blocker, "weights.json"), Weights{"a": 1})
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestProcessChosenLabel(t *testing.T) {
	s := newTestStore(t, Weights{"awe": 2.0, "curiosity": 3.0})

	label, w, err := s.Process("awe")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if label != "awe" {
		t.Errorf("expected awe, got %s", label)
	}
	if math.Abs(w["awe"]-2.3) > tolerance || math.Abs(w["curiosity"]-2.7) > tolerance {
		t.Errorf("unexpected weights %v", w)
	}

	// Persisted after the mutation.
	reloaded, err := Load(s.Path(), nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if math.Abs(reloaded["awe"]-2.3) > tolerance {
		t.Errorf("persisted awe = %v, want 2.3", reloaded["awe"])
	}
}

func TestProcessDraws(t *testing.T) {
	s := newTestStore(t, Weights{"a": 1, "b": 1, "c": 1})
	before := s.Snapshot().Total()

	label, w, err := s.Process("")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if _, ok := w[label]; !ok {
		t.Fatalf("drew unknown label %q", label)
	}
	want := DefaultDecay*before + DefaultBoost
	if math.Abs(w.Total()-want) > tolerance {
		t.Errorf("total = %v, want %v", w.Total(), want)
	}
}

func TestProcessUnknownLabel(t *testing.T) {
	s := newTestStore(t, Weights{"a": 1})
	_, _, err := s.Process("nope")
	if !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if s.Snapshot()["a"] != 1 {
		t.Error("weights changed after a rejected process")
	}
}

func TestProcessKeepsAllLabelsSelectable(t *testing.T) {
	s := newTestStore(t, Weights{"a": 1, "b": 1})
	for i := 0; i < 200; i++ {
		if _, _, err := s.Process("a"); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if s.Snapshot()["b"] <= 0 {
		t.Error("unchosen label decayed to zero")
	}
}

func TestAddLabel(t *testing.T) {
	s := newTestStore(t, Weights{"a": 1})

	added, err := s.AddLabel("b", 1.0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !added {
		t.Error("expected new label to be added")
	}

	added, err = s.AddLabel("b", 5.0)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if added {
		t.Error("expected no-op for existing label")
	}
	if s.Snapshot()["b"] != 1.0 {
		t.Errorf("existing weight changed: %v", s.Snapshot()["b"])
	}

	reloaded, _ := Load(s.Path(), nil)
	if reloaded["b"] != 1.0 {
		t.Errorf("added label not persisted: %v", reloaded)
	}
}

func TestAddLabelValidation(t *testing.T) {
	s := newTestStore(t, Weights{"a": 1})
	if _, err := s.AddLabel("  ", 1); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for blank label, got %v", err)
	}
	if _, err := s.AddLabel("x", -1); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for negative weight, got %v", err)
	}
}

func TestOpenEmptySeed(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "w.json"), Weights{}, Options{})
	if !errors.Is(err, model.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}
