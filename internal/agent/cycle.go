package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/emergent-mind/internal/model"
)

// CycleReport summarizes one cycle. Phases that were skipped leave their
// field empty and record the reason in Skipped.
type CycleReport struct {
	ID         string            `json:"id"`
	Perception string            `json:"perception,omitempty"`
	Reflection string            `json:"reflection,omitempty"`
	Post       *Result           `json:"post,omitempty"`
	Skipped    map[string]string `json:"skipped,omitempty"`
}

// fatal reports whether err must stop the cycle. Storage and dimension
// errors mean the persisted state can no longer be trusted.
func fatal(err error) bool {
	return errors.Is(err, model.ErrStorage) || errors.Is(err, model.ErrDimensionMismatch)
}

// Cycle runs perceive, then maybe reflect, then post. Embedding and model
// failures skip the phase; storage failures abort the cycle.
func (a *Agent) Cycle(ctx context.Context) (*CycleReport, error) {
	rep := &CycleReport{ID: uuid.NewString(), Skipped: map[string]string{}}
	log := a.Log.With().Str("cycle", rep.ID).Logger()

	skip := func(phase string, err error) error {
		if fatal(err) {
			return fmt.Errorf("cycle %s: %w", rep.ID, err)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		rep.Skipped[phase] = err.Error()
		if errors.Is(err, ErrNoInput) {
			log.Info().Str("phase", phase).Msg(err.Error())
		} else {
			log.Warn().Err(err).Str("phase", phase).Msg("phase skipped")
		}
		return nil
	}

	note, err := a.Perceive(ctx)
	if err != nil {
		if err := skip("perceive", err); err != nil {
			return rep, err
		}
	}
	rep.Perception = note

	summary, reflected, err := a.Reflect(ctx, false)
	if err != nil {
		if err := skip("reflect", err); err != nil {
			return rep, err
		}
	} else if !reflected {
		rep.Skipped["reflect"] = "not due"
	}
	rep.Reflection = summary

	res, err := a.Tweet(ctx, rep.ID)
	if err != nil {
		if err := skip("tweet", err); err != nil {
			return rep, err
		}
	}
	rep.Post = res
	return rep, nil
}

// Schedule spreads posts over hours. Offsets are sorted and the first is 0.
func Schedule(hours float64, posts int, rng *rand.Rand) []time.Duration {
	if posts <= 0 {
		return nil
	}
	window := float64(time.Duration(hours * float64(time.Hour)))
	out := make([]time.Duration, posts)
	for i := 1; i < posts; i++ {
		out[i] = time.Duration(rng.Float64() * window)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Run executes one cycle per scheduled offset, sleeping between them unless
// Settings.Testing is set. It stops early when ctx is done or a cycle fails.
func (a *Agent) Run(ctx context.Context) ([]*CycleReport, error) {
	offsets := Schedule(a.Settings.ScheduleHours, a.Settings.SchedulePosts, a.Rand)
	a.Log.Info().
		Int("posts", len(offsets)).
		Float64("hours", a.Settings.ScheduleHours).
		Msg("schedule ready")

	var reports []*CycleReport
	var last time.Duration
	for i, off := range offsets {
		wait := off - last
		last = off
		a.Log.Info().Int("n", i+1).Dur("at", off).Dur("wait", wait).Msg("next cycle")

		if !a.Settings.Testing && wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return reports, ctx.Err()
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		rep, err := a.Cycle(ctx)
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// generationEntry is one line of the generation log.
type generationEntry struct {
	CycleID   string    `json:"cycle_id"`
	Timestamp time.Time `json:"timestamp"`
	Result
	SystemPrompt  string   `json:"system_prompt"`
	UserPrompt    string   `json:"user_prompt"`
	Perceptions   []string `json:"perceptions"`
	RecentBeliefs []string `json:"recent_beliefs"`
	SelfReference bool     `json:"self_reference"`
}

// logGeneration appends e to the generation log. Failures are logged only.
func (a *Agent) logGeneration(e generationEntry) {
	path := a.Settings.GenerationLogPath
	if path == "" {
		return
	}
	if err := appendJSONLine(path, e); err != nil {
		a.Log.Warn().Err(err).Str("path", path).Msg("generation log write failed")
	}
}

func appendJSONLine(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}
