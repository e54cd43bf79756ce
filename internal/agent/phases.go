package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/emergent-mind/internal/identity"
	"github.com/rcliao/emergent-mind/internal/llm"
	"github.com/rcliao/emergent-mind/internal/logging"
	"github.com/rcliao/emergent-mind/internal/model"
	"github.com/rcliao/emergent-mind/internal/perception"
	"github.com/rcliao/emergent-mind/internal/publish"
	"github.com/rcliao/emergent-mind/internal/recall"
	"github.com/rcliao/emergent-mind/internal/store"
	"github.com/rcliao/emergent-mind/internal/vocab"
)

// ErrNoInput reports that a phase had nothing to work on.
var ErrNoInput = errors.New("nothing to process")

func (a *Agent) generate(ctx context.Context, phase string, req llm.Request) (string, error) {
	a.Log.Debug().
		Str("phase", phase).
		Str("system", logging.Truncate(req.System, 200)).
		Str("user", logging.Truncate(req.User, 400)).
		Msg("prompt")
	out, err := a.LLM.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: generate: %w", phase, err)
	}
	return out, nil
}

// Perceive reads the next feed item, writes a journal note about it and
// stores the note as a perception. It returns ErrNoInput when the feed is
// exhausted or the item is incomplete.
func (a *Agent) Perceive(ctx context.Context) (string, error) {
	it, next, ok, err := perception.Next(a.Settings.FeedPath, a.State.PerceptionCursor)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("perceive: feed exhausted at %d: %w", a.State.PerceptionCursor, ErrNoInput)
	}
	a.State.PerceptionCursor = next
	if err := a.saveState(); err != nil {
		return "", err
	}
	if !it.Valid() {
		return "", fmt.Errorf("perceive: incomplete block at line %d: %w", it.StartLine, ErrNoInput)
	}

	note, err := a.generate(ctx, "perceive", llm.Request{
		System:      identityPrefix(a.Identity.Summary()) + perceptionSystemPrompt,
		User:        it.Format(),
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	if _, err := a.Memory.AddMemory(ctx, note, model.KindPerception); err != nil {
		return "", fmt.Errorf("perceive: %w", err)
	}

	a.State.RecentPerception = note
	if err := a.saveState(); err != nil {
		return "", err
	}
	a.Log.Info().Str("author", it.Author).Str("note", logging.Truncate(note, 120)).Msg("perceived")
	return note, nil
}

func (a *Agent) shouldReflect() bool {
	s := a.Settings
	if s.ForceReflection && a.State.CyclesSinceReflection >= s.ForceReflectionAfter {
		return true
	}
	return a.Rand.Float64() < s.ReflectionChance
}

// Reflect rewrites the identity from memories recorded since the last
// reflection. It reports whether a reflection happened. The model is asked
// for {summary, topics}; if the reply is not a valid structured update, its
// summary field or else the whole reply becomes the new summary.
func (a *Agent) Reflect(ctx context.Context, force bool) (string, bool, error) {
	if !force && !a.shouldReflect() {
		a.State.CyclesSinceReflection++
		return "", false, a.saveState()
	}

	entries := a.Memory.Entries()
	from := a.State.ReflectedAt
	if from > len(entries) {
		from = len(entries)
	}
	fresh := make([]string, 0, len(entries)-from)
	for _, e := range entries[from:] {
		fresh = append(fresh, e.Text)
	}
	if len(fresh) < a.Settings.ReflectionMinMemories {
		a.State.CyclesSinceReflection++
		a.Log.Debug().Int("new_memories", len(fresh)).Msg("not enough new memories to reflect")
		return "", false, a.saveState()
	}

	out, err := a.generate(ctx, "reflect", llm.Request{
		System:      identityPrefix(a.Identity.Summary()),
		User:        reflectionPrompt(fresh),
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		return "", false, err
	}

	summary, err := a.applyReflection(out)
	if err != nil {
		return "", false, fmt.Errorf("reflect: %w", err)
	}

	a.State.ReflectedAt = len(entries)
	a.State.CyclesSinceReflection = 0
	if err := a.saveState(); err != nil {
		return "", false, err
	}
	a.Log.Info().Int("memories", len(fresh)).Str("summary", logging.Truncate(summary, 120)).Msg("reflected")
	return summary, true, nil
}

func (a *Agent) applyReflection(out string) (string, error) {
	payload, err := identity.ParseStructured(out)
	if err == nil {
		ok, uerr := a.Identity.UpdateFromStructured(payload)
		if ok {
			return a.Identity.Summary(), nil
		}
		if !errors.Is(uerr, model.ErrValidation) {
			return "", uerr
		}
		a.Log.Warn().Err(uerr).Msg("structured reflection rejected")
		if s, ok := payload["summary"].(string); ok && strings.TrimSpace(s) != "" {
			out = s
		}
	}
	if err := a.Identity.SetSummary(out); err != nil {
		return "", err
	}
	return a.Identity.Summary(), nil
}

// choosePromptType returns the default type until the run of defaults reaches
// the current gap, then a random special type and a new gap of one or two.
func (a *Agent) choosePromptType(hasHistory bool) string {
	st := a.State
	if st.NextSpecialIn <= 0 {
		st.NextSpecialIn = 1 + a.Rand.Intn(2)
	}
	if !hasHistory || st.DefaultsSinceSpecial < st.NextSpecialIn {
		st.DefaultsSinceSpecial++
		return PromptDefault
	}
	st.DefaultsSinceSpecial = 0
	st.NextSpecialIn = 1 + a.Rand.Intn(2)
	return SpecialPromptTypes[a.Rand.Intn(len(SpecialPromptTypes))]
}

// Result is one finished post and how it was made.
type Result struct {
	Mode       string   `json:"mode"`
	PromptType string   `json:"prompt_type"`
	Mood       string   `json:"mood"`
	Focus      string   `json:"focus"`
	Style      string   `json:"style"`
	Output     string   `json:"output"`
	Post       string   `json:"post"`
	BanWords   []string `json:"ban_words"`
	Concept    string   `json:"concept,omitempty"`
}

// Tweet composes, stores and publishes one post.
func (a *Agent) Tweet(ctx context.Context, cycleID string) (*Result, error) {
	mode := a.Profile.ChooseMode(a.Rand)
	beliefs := a.Memory.Recent(model.KindReflection, 3)
	promptType := a.choosePromptType(len(beliefs) > 0)

	mood, _, err := a.Mood.Process("")
	if err != nil {
		return nil, fmt.Errorf("tweet: mood: %w", err)
	}
	focus, _, err := a.Curiosity.Process("")
	if err != nil {
		return nil, fmt.Errorf("tweet: curiosity: %w", err)
	}
	style, _, err := a.Style.Process("")
	if err != nil {
		return nil, fmt.Errorf("tweet: style: %w", err)
	}

	query := strings.ReplaceAll(focus, "_", " ")
	refl, err := a.Memory.Retrieve(ctx, store.RetrieveParams{Query: query, K: 2, Kind: model.KindReflection})
	if err != nil {
		return nil, fmt.Errorf("tweet: %w", err)
	}
	perc, err := a.Memory.Retrieve(ctx, store.RetrieveParams{Query: query, K: 2, Kind: model.KindPerception})
	if err != nil {
		return nil, fmt.Errorf("tweet: %w", err)
	}
	if len(perc) == 0 {
		perc = a.Memory.Sample(2, model.KindPerception)
	}

	var journal []string
	if a.State.RecentPerception != "" {
		journal, err = recall.TopK(ctx, a.Memory, a.State.RecentPerception, a.Settings.TopK, a.Settings.Rank)
		if err != nil {
			return nil, fmt.Errorf("tweet: %w", err)
		}
	} else {
		journal = recall.SelectDiverse(a.Memory, a.Settings.DiverseN, a.Settings.DiverseCeiling)
	}

	banWords := a.Vocab.BuildBanlist(a.Memory.Recent(model.KindTweet, a.Settings.BanlistWindow), a.Settings.BanlistK)

	in := postInputs{
		PromptType:  promptType,
		Mode:        mode,
		Perceptions: perc,
		Reflections: refl,
		Journal:     journal,
		Mood:        mood,
		Focus:       focus,
		Style:       style,
		BanWords:    banWords,
		SelfRef:     a.Rand.Float64() < a.Settings.SelfRefChance,
		Invented:    a.Vocab.InventedSnippet(1),
	}
	if len(beliefs) > 0 {
		in.RecentBelief = beliefs[0]
	}
	system, user := buildPostPrompts(a.Profile, in)

	out, err := a.generate(ctx, "tweet", llm.Request{
		System:      system,
		User:        user,
		Temperature: mode.Temperature,
		MaxTokens:   mode.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	post := ExtractFinalPost(out, mode.MaxChars)

	if _, err := a.Memory.AddMemory(ctx, out, model.KindReflection); err != nil {
		return nil, fmt.Errorf("tweet: store reflection: %w", err)
	}
	if _, err := a.Memory.AddMemory(ctx, post, model.KindTweet); err != nil {
		return nil, fmt.Errorf("tweet: store post: %w", err)
	}

	res := &Result{
		Mode:       mode.Name,
		PromptType: promptType,
		Mood:       mood,
		Focus:      focus,
		Style:      style,
		Output:     out,
		Post:       post,
		BanWords:   banWords,
	}

	if promptType == PromptInventConcept {
		if res.Concept, err = a.registerConcept(out); err != nil {
			return nil, fmt.Errorf("tweet: %w", err)
		}
	}

	if err := a.saveState(); err != nil {
		return nil, err
	}

	if a.Publisher != nil {
		err := a.Publisher.Publish(ctx, publish.Post{
			CycleID:    cycleID,
			Mode:       mode.Name,
			PromptType: promptType,
			Text:       post,
			At:         a.Now(),
		})
		if err != nil {
			a.Log.Error().Err(err).Msg("publish failed")
		}
	}

	a.logGeneration(generationEntry{
		CycleID:       cycleID,
		Timestamp:     a.Now().UTC(),
		Result:        *res,
		SystemPrompt:  system,
		UserPrompt:    user,
		Perceptions:   perc,
		RecentBeliefs: beliefs,
		SelfReference: in.SelfRef,
	})
	a.Log.Info().
		Str("mode", mode.Name).
		Str("prompt_type", promptType).
		Str("mood", mood).
		Str("focus", focus).
		Str("style", style).
		Str("post", logging.Truncate(post, 120)).
		Msg("posted")
	return res, nil
}

// registerConcept stores a coined term found in out and makes it a new
// curiosity label. It returns the term, or "" if none was coined.
func (a *Agent) registerConcept(out string) (string, error) {
	term, def, ok := vocab.ExtractConcept(out)
	if !ok {
		return "", nil
	}
	if err := a.Vocab.AddInventedTerm(term, def); err != nil {
		return "", err
	}
	if _, err := a.Curiosity.AddLabel(term, 1); err != nil {
		return "", err
	}
	return term, nil
}
