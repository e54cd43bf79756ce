package agent

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/emergent-mind/internal/config"
	"github.com/rcliao/emergent-mind/internal/embedding"
	"github.com/rcliao/emergent-mind/internal/identity"
	"github.com/rcliao/emergent-mind/internal/llm"
	"github.com/rcliao/emergent-mind/internal/model"
	"github.com/rcliao/emergent-mind/internal/publish"
	"github.com/rcliao/emergent-mind/internal/store"
	"github.com/rcliao/emergent-mind/internal/vocab"
	"github.com/rcliao/emergent-mind/internal/weights"
)

const testFeed = `[Tweet]
Author: alice
Text: rivers remember every stone they pass
---
[Tweet]
Author: bob
Text: a neural net dreams in gradients
---
`

const postReply = "**Belief Recap:** rivers\n**New Question:** why?\n**Tweet:** \"Every river is a slow thought.\""

// scripted answers by phase, recognised from the prompt.
func scripted(reflection string) llm.Func {
	return func(_ context.Context, r llm.Request) (string, error) {
		switch {
		case strings.Contains(r.System, perceptionSystemPrompt):
			return "journal: " + r.User, nil
		case strings.Contains(r.User, "Reply with ONLY a JSON object"):
			return reflection, nil
		default:
			return postReply, nil
		}
	}
}

type capture struct {
	mu    sync.Mutex
	posts []publish.Post
}

func (c *capture) Publish(_ context.Context, p publish.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.posts = append(c.posts, p)
	return nil
}

func newTestAgent(t *testing.T, gen llm.Generator) (*Agent, *capture) {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	feed := filepath.Join(dir, "feed.txt")
	if err := os.WriteFile(feed, []byte(testFeed), 0o644); err != nil {
		t.Fatal(err)
	}

	mem, err := store.Open(ctx, filepath.Join(dir, "memory"), embedding.NewHashedEmbedder(64), store.Options{Rand: rng})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	t.Cleanup(func() { mem.Close() })

	profile := config.DefaultProfile()
	id, err := identity.Open(filepath.Join(dir, "identity.json"), profile.Summary)
	if err != nil {
		t.Fatal(err)
	}
	voc, err := vocab.Open(filepath.Join(dir, "vocabulary.json"), profile.Vocabulary, rng)
	if err != nil {
		t.Fatal(err)
	}
	open := func(name string, seed map[string]float64) *weights.Store {
		s, err := weights.Open(filepath.Join(dir, name+".json"), seed, weights.Options{Rand: rng})
		if err != nil {
			t.Fatal(err)
		}
		return s
	}

	settings := DefaultSettings()
	settings.FeedPath = feed
	settings.StatePath = filepath.Join(dir, "state.json")
	settings.GenerationLogPath = filepath.Join(dir, "generations.jsonl")
	settings.Testing = true
	settings.ReflectionChance = 0

	pub := &capture{}
	a := New(Deps{
		Memory:    mem,
		Identity:  id,
		Vocab:     voc,
		Mood:      open("mood", profile.Moods),
		Curiosity: open("curiosity", profile.Curiosities),
		Style:     open("style", profile.Styles),
		LLM:       gen,
		Publisher: pub,
		Profile:   profile,
		Log:       zerolog.Nop(),
		Rand:      rng,
		Now:       func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) },
	}, settings, nil)
	return a, pub
}

func addMemories(t *testing.T, a *Agent, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := a.Memory.AddMemory(context.Background(), strings.Repeat("memory ", i+1), model.KindOther); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPerceive(t *testing.T) {
	a, _ := newTestAgent(t, scripted(""))
	ctx := context.Background()

	note, err := a.Perceive(ctx)
	if err != nil {
		t.Fatalf("perceive: %v", err)
	}
	if note != "journal: @alice\nrivers remember every stone they pass" {
		t.Errorf("unexpected note %q", note)
	}
	if a.State.PerceptionCursor != 1 || a.State.RecentPerception != note {
		t.Errorf("unexpected state %+v", a.State)
	}
	if got := a.Memory.Recent(model.KindPerception, 5); len(got) != 1 || got[0] != note {
		t.Errorf("expected stored perception, got %v", got)
	}

	saved, err := LoadState(a.Settings.StatePath)
	if err != nil || saved.PerceptionCursor != 1 {
		t.Errorf("state not persisted: %+v, %v", saved, err)
	}

	a.Perceive(ctx)
	if _, err := a.Perceive(ctx); !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput after feed end, got %v", err)
	}
}

func TestReflectNeedsNewMemories(t *testing.T) {
	a, _ := newTestAgent(t, scripted(`{"summary": "new me", "topics": ["rivers"]}`))
	ctx := context.Background()
	addMemories(t, a, 2)

	_, ok, err := a.Reflect(ctx, true)
	if err != nil || ok {
		t.Fatalf("expected no reflection with 2 memories, got %v, %v", ok, err)
	}
	if a.State.CyclesSinceReflection != 1 {
		t.Errorf("expected counter 1, got %d", a.State.CyclesSinceReflection)
	}

	addMemories(t, a, 1)
	summary, ok, err := a.Reflect(ctx, true)
	if err != nil || !ok {
		t.Fatalf("expected reflection, got %v, %v", ok, err)
	}
	if summary != "new me" || a.Identity.Topics()[0] != "rivers" {
		t.Errorf("identity not updated: %+v", a.Identity.Get())
	}
	if a.State.ReflectedAt != 3 || a.State.CyclesSinceReflection != 0 {
		t.Errorf("unexpected state %+v", a.State)
	}

	// The same memories do not count twice.
	if _, ok, _ := a.Reflect(ctx, true); ok {
		t.Error("expected no reflection without new memories")
	}
}

func TestReflectFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"raw text", "I am a river now.", "I am a river now."},
		{"invalid structure keeps summary", `{"summary": "just the summary"}`, "just the summary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAgent(t, scripted(tt.reply))
			addMemories(t, a, 3)
			summary, ok, err := a.Reflect(context.Background(), true)
			if err != nil || !ok {
				t.Fatalf("reflect: %v, %v", ok, err)
			}
			if summary != tt.want {
				t.Errorf("summary = %q, want %q", summary, tt.want)
			}
		})
	}
}

func TestReflectForcedAfterK(t *testing.T) {
	a, _ := newTestAgent(t, scripted(`{"summary": "x", "topics": []}`))
	a.Settings.ForceReflectionAfter = 2
	addMemories(t, a, 3)

	for i := 0; i < 2; i++ {
		if _, ok, _ := a.Reflect(context.Background(), false); ok {
			t.Fatalf("call %d: reflection should not be due", i)
		}
	}
	if _, ok, err := a.Reflect(context.Background(), false); !ok || err != nil {
		t.Fatalf("expected forced reflection, got %v, %v", ok, err)
	}
}

func TestTweet(t *testing.T) {
	a, pub := newTestAgent(t, scripted(""))
	ctx := context.Background()
	a.Perceive(ctx)
	moodBefore := a.Mood.Snapshot()

	res, err := a.Tweet(ctx, "cycle-1")
	if err != nil {
		t.Fatalf("tweet: %v", err)
	}
	if res.Post != "Every river is a slow thought." {
		t.Errorf("unexpected post %q", res.Post)
	}
	if res.PromptType != PromptDefault {
		t.Errorf("expected default prompt without history, got %s", res.PromptType)
	}
	if got := a.Memory.Recent(model.KindTweet, 1); len(got) != 1 || got[0] != res.Post {
		t.Errorf("post not stored: %v", got)
	}
	if got := a.Memory.Recent(model.KindReflection, 1); len(got) != 1 || got[0] != postReply {
		t.Errorf("full output not stored: %v", got)
	}
	if len(pub.posts) != 1 || pub.posts[0].CycleID != "cycle-1" || pub.posts[0].Text != res.Post {
		t.Errorf("unexpected published posts %+v", pub.posts)
	}
	if reflect.DeepEqual(a.Mood.Snapshot(), moodBefore) {
		t.Error("expected mood weights to change")
	}

	data, err := os.ReadFile(a.Settings.GenerationLogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"cycle_id":"cycle-1"`) || !strings.Contains(string(data), `"post":"Every river is a slow thought."`) {
		t.Errorf("unexpected generation log %s", data)
	}
}

func TestChoosePromptType(t *testing.T) {
	a, _ := newTestAgent(t, scripted(""))
	for i := 0; i < 5; i++ {
		if got := a.choosePromptType(false); got != PromptDefault {
			t.Fatalf("no history: got %s", got)
		}
	}

	a.State.DefaultsSinceSpecial = 0
	a.State.NextSpecialIn = 2
	seq := []string{a.choosePromptType(true), a.choosePromptType(true), a.choosePromptType(true)}
	if seq[0] != PromptDefault || seq[1] != PromptDefault || seq[2] == PromptDefault {
		t.Errorf("expected two defaults then a special, got %v", seq)
	}
	if a.State.DefaultsSinceSpecial != 0 || a.State.NextSpecialIn < 1 || a.State.NextSpecialIn > 2 {
		t.Errorf("unexpected counters %+v", a.State)
	}
}

func TestRegisterConcept(t *testing.T) {
	a, _ := newTestAgent(t, scripted(""))
	term, err := a.registerConcept("**Concept Name:** Echo Drift\n**Definition:** Ideas wearing smooth.\n**Tweet:** x")
	if err != nil || term != "Echo Drift" {
		t.Fatalf("got %q, %v", term, err)
	}
	if a.Vocab.Terms()["Echo Drift"] != "Ideas wearing smooth." {
		t.Error("term not stored in vocabulary")
	}
	if _, ok := a.Curiosity.Snapshot()["Echo Drift"]; !ok {
		t.Error("term not added as curiosity label")
	}
	if term, _ := a.registerConcept("**Tweet:** nothing"); term != "" {
		t.Errorf("expected no term, got %q", term)
	}
}

func TestCycleSkipsFailedPhases(t *testing.T) {
	calls := 0
	gen := llm.Func(func(context.Context, llm.Request) (string, error) {
		calls++
		return "", errors.New("model offline")
	})
	a, pub := newTestAgent(t, gen)

	rep, err := a.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle should not fail on model errors: %v", err)
	}
	if rep.Skipped["perceive"] == "" || rep.Skipped["tweet"] == "" {
		t.Errorf("expected skipped phases, got %+v", rep.Skipped)
	}
	if len(pub.posts) != 0 || calls != 2 {
		t.Errorf("expected 2 model calls and no post, got %d calls, %d posts", calls, len(pub.posts))
	}
}

func TestCycleAbortsOnStorageError(t *testing.T) {
	a, _ := newTestAgent(t, scripted(""))
	a.Settings.FeedPath = t.TempDir() // a directory cannot be read as a feed

	_, err := a.Cycle(context.Background())
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestRunTestingMode(t *testing.T) {
	a, pub := newTestAgent(t, scripted(`{"summary": "s", "topics": []}`))
	a.Settings.SchedulePosts = 3
	a.Settings.ScheduleHours = 10

	reports, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(reports) != 3 || len(pub.posts) != 3 {
		t.Errorf("expected 3 cycles and posts, got %d and %d", len(reports), len(pub.posts))
	}
	if reports[2].Skipped["perceive"] == "" {
		t.Error("expected the third cycle to find the feed exhausted")
	}
}

func TestRunHonorsCancel(t *testing.T) {
	a, _ := newTestAgent(t, scripted(""))
	a.Settings.Testing = false
	a.Settings.SchedulePosts = 2
	a.Settings.ScheduleHours = 1000

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reports, err := a.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("expected no cycles after cancel, got %d", len(reports))
	}
}

func TestSchedule(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	got := Schedule(2, 5, rng)
	if len(got) != 5 || got[0] != 0 {
		t.Fatalf("unexpected schedule %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] || got[i] >= 2*time.Hour {
			t.Errorf("bad offset %v at %d", got[i], i)
		}
	}
	if Schedule(1, 0, rng) != nil {
		t.Error("expected nil schedule for zero posts")
	}
}

func TestExtractFinalPost(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"marker", "**Recap:** x\n**Tweet:** hello world", 280, "hello world"},
		{"quoted", "**Tweet:** \"quoted\"", 280, "quoted"},
		{"capped", "**Tweet:** abcdef", 3, "abc"},
		{"no marker keeps tail", "just some text", 4, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFinalPost(tt.in, tt.max); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
