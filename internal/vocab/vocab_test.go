package vocab

import (
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcliao/emergent-mind/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	seed := model.Vocabulary{
		Stopwords: []string{"the", "a", "is", "of"},
		Whitelist: []string{"consciousness"},
	}
	s, err := Open(filepath.Join(t.TempDir(), "vocabulary.json"), seed, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("open vocab: %v", err)
	}
	return s
}

func TestBuildBanlist(t *testing.T) {
	s := newTestStore(t)
	texts := []string{
		"The river is a mirror of consciousness",
		"River light, river sound",
		"A mirror remembers 2024",
	}

	got := s.BuildBanlist(texts, 2)
	if strings.Join(got, ",") != "river,mirror" {
		t.Errorf("banlist = %v, want [river mirror]", got)
	}

	all := s.BuildBanlist(texts, 20)
	for _, w := range all {
		switch w {
		case "the", "a", "is", "of", "consciousness", "2024":
			t.Errorf("unexpected word %q in %v", w, all)
		}
		if strings.ContainsAny(w, ",.!") {
			t.Errorf("punctuation left in %q", w)
		}
	}
}

func TestBuildBanlistContractions(t *testing.T) {
	texts := []string{
		"I don't know why it's quiet. I can't stop. We don't, we won't.",
		"self-aware echoes; self-aware drift. don't.",
	}
	stop := toSet([]string{"i", "we", "it", "why", "know"})

	got := BuildBanlist(texts, 10, stop, nil)
	want := []string{"dont", "selfaware", "its", "quiet", "cant", "stop", "wont", "echoes", "drift"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("banlist = %v, want %v", got, want)
	}
	for _, w := range got {
		switch w {
		case "do", "nt", "s", "ca", "wo":
			t.Errorf("contraction fragment %q in %v", w, got)
		}
	}
}

func TestBuildBanlistEdges(t *testing.T) {
	s := newTestStore(t)
	if got := s.BuildBanlist(nil, 6); got == nil || len(got) != 0 {
		t.Errorf("expected empty list, got %#v", got)
	}
	if got := s.BuildBanlist([]string{"words here"}, 0); len(got) != 0 {
		t.Errorf("expected empty list for k=0, got %v", got)
	}
}

func TestInventedTerms(t *testing.T) {
	s := newTestStore(t)
	if s.InventedSnippet(2) != "" {
		t.Error("expected empty snippet with no terms")
	}

	if err := s.AddInventedTerm("Echo Drift", "The slow loss of meaning in repeated ideas."); err != nil {
		t.Fatal(err)
	}
	if err := s.AddInventedTerm(" ", "x"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}

	snippet := s.InventedSnippet(2)
	if snippet != "• **Echo Drift** – The slow loss of meaning in repeated ideas." {
		t.Errorf("unexpected snippet %q", snippet)
	}

	reopened, err := Open(s.Path(), model.Vocabulary{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Terms()["Echo Drift"] == "" {
		t.Error("expected persisted term")
	}

	s.AddInventedTerm("Second", "another")
	if lines := strings.Split(s.InventedSnippet(1), "\n"); len(lines) != 1 {
		t.Errorf("expected one line, got %v", lines)
	}
}

func TestExtractConcept(t *testing.T) {
	text := "**Concept Name:** Quiet Recursion\n**Definition:** Thought folding back on itself.\n**Tweet:** hi"
	term, def, ok := ExtractConcept(text)
	if !ok || term != "Quiet Recursion" || def != "Thought folding back on itself." {
		t.Errorf("got %q, %q, %v", term, def, ok)
	}
	if _, _, ok := ExtractConcept("**Tweet:** nothing coined"); ok {
		t.Error("expected no concept")
	}
}
