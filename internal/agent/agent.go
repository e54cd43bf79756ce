// Package agent runs the perceive, reflect and post cycle over the memory,
// identity, vocabulary and weighted-category stores.
package agent

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/emergent-mind/internal/config"
	"github.com/rcliao/emergent-mind/internal/identity"
	"github.com/rcliao/emergent-mind/internal/jsonfile"
	"github.com/rcliao/emergent-mind/internal/llm"
	"github.com/rcliao/emergent-mind/internal/publish"
	"github.com/rcliao/emergent-mind/internal/recall"
	"github.com/rcliao/emergent-mind/internal/store"
	"github.com/rcliao/emergent-mind/internal/vocab"
	"github.com/rcliao/emergent-mind/internal/weights"
)

// State is everything the agent carries between cycles.
type State struct {
	PerceptionCursor      int    `json:"perception_cursor"`
	CyclesSinceReflection int    `json:"cycles_since_reflection"`
	ReflectedAt           int    `json:"reflected_at"` // memory count after the last reflection
	RecentPerception      string `json:"recent_perception"`
	DefaultsSinceSpecial  int    `json:"defaults_since_special"`
	NextSpecialIn         int    `json:"next_special_in"`
}

// LoadState reads the state file, returning a zero State if it is missing.
func LoadState(path string) (*State, error) {
	var s State
	if _, err := jsonfile.Read(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Settings tunes the cycle.
type Settings struct {
	FeedPath          string
	StatePath         string
	GenerationLogPath string

	ReflectionChance      float64
	ForceReflection       bool
	ForceReflectionAfter  int
	ReflectionMinMemories int

	DiverseN       int
	DiverseCeiling float64
	TopK           int
	Rank           recall.RankOptions

	BanlistK      int
	BanlistWindow int
	SelfRefChance float64

	ScheduleHours float64
	SchedulePosts int
	Testing       bool // skip sleeping between scheduled cycles
}

// DefaultSettings returns the stock tuning with empty paths.
func DefaultSettings() Settings {
	return Settings{
		ReflectionChance:      0.2,
		ForceReflection:       true,
		ForceReflectionAfter:  3,
		ReflectionMinMemories: 3,
		DiverseN:              recall.DefaultDiverseN,
		DiverseCeiling:        recall.DefaultCeiling,
		TopK:                  recall.DefaultTopK,
		Rank:                  recall.DefaultRankOptions(),
		BanlistK:              vocab.DefaultBanlistK,
		BanlistWindow:         20,
		SelfRefChance:         0.2,
		ScheduleHours:         5,
		SchedulePosts:         10,
	}
}

// SettingsFromConfig maps environment settings onto Settings.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	decay, err := recall.ParseDecay(cfg.RankDecay)
	if err != nil {
		return Settings{}, err
	}
	s := DefaultSettings()
	s.FeedPath = cfg.Feed()
	s.StatePath = cfg.Path("state.json")
	s.GenerationLogPath = cfg.Path("generations.jsonl")
	s.ReflectionChance = cfg.ReflectionChance
	s.ForceReflection = cfg.ForceReflection
	s.ForceReflectionAfter = cfg.ForceReflectionAfter
	s.ReflectionMinMemories = cfg.ReflectionMinMemories
	s.DiverseN = cfg.DiverseN
	s.DiverseCeiling = cfg.DiverseCeiling
	s.TopK = cfg.RankTopK
	s.Rank = recall.RankOptions{
		SimWeight:     cfg.RankSimWeight,
		RecencyWeight: cfg.RankRecencyWeight,
		Decay:         decay,
		Lambda:        recall.DefaultLambda,
	}
	s.ScheduleHours = cfg.ScheduleHours
	s.SchedulePosts = cfg.SchedulePosts
	s.Testing = cfg.Testing
	return s, nil
}

// Deps are the stores and collaborators the agent drives.
type Deps struct {
	Memory    store.Memory
	Identity  *identity.Store
	Vocab     *vocab.Store
	Mood      *weights.Store
	Curiosity *weights.Store
	Style     *weights.Store
	LLM       llm.Generator
	Publisher publish.Publisher
	Profile   *config.Profile
	Log       zerolog.Logger
	Rand      *rand.Rand
	Now       func() time.Time
}

// Agent owns the cycle state. It is not safe for concurrent use.
type Agent struct {
	Deps
	Settings Settings
	State    *State
}

// New returns an agent starting from state. A nil state starts fresh.
func New(d Deps, s Settings, state *State) *Agent {
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Profile == nil {
		d.Profile = config.DefaultProfile()
	}
	if state == nil {
		state = &State{}
	}
	return &Agent{Deps: d, Settings: s, State: state}
}

func (a *Agent) saveState() error {
	if a.Settings.StatePath == "" {
		return nil
	}
	return jsonfile.Write(a.Settings.StatePath, a.State)
}
