package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/rcliao/emergent-mind/internal/agent"
	"github.com/rcliao/emergent-mind/internal/config"
	"github.com/rcliao/emergent-mind/internal/embedding"
	"github.com/rcliao/emergent-mind/internal/identity"
	"github.com/rcliao/emergent-mind/internal/llm"
	"github.com/rcliao/emergent-mind/internal/logging"
	"github.com/rcliao/emergent-mind/internal/model"
	"github.com/rcliao/emergent-mind/internal/publish"
	"github.com/rcliao/emergent-mind/internal/store"
	"github.com/rcliao/emergent-mind/internal/vocab"
	"github.com/rcliao/emergent-mind/internal/weights"
)

// weightNames are the three weighted-category stores, in file order.
var weightNames = []string{"mood", "curiosity", "style"}

// env holds what every command shares: configuration, the logger, the
// profile and the resources that must be closed on exit.
type env struct {
	cfg     *config.Config
	log     zerolog.Logger
	profile *config.Profile
	rng     *rand.Rand
	closers []func() error
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", model.ErrStorage, err)
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:     cfg,
		log:     log,
		profile: profile,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// mustEnv is loadEnv for commands, exiting on failure.
func mustEnv() *env {
	e, err := loadEnv()
	if err != nil {
		exitErr("load config", err)
	}
	return e
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.log.Warn().Err(err).Msg("close failed")
		}
	}
	e.closers = nil
}

// embedder builds the configured embedder. Remote providers are rate
// limited, and the cache sits in front so cached texts skip the limiter.
func (e *env) embedder() (embedding.Embedder, error) {
	cfg := e.cfg
	emb, err := embedding.New(embedding.Options{
		Provider: cfg.EmbedProvider,
		Model:    cfg.EmbedModel,
		BaseURL:  cfg.EmbedBaseURL,
		APIKey:   cfg.APIKey,
		Dims:     cfg.EmbedDims,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	if cfg.EmbedProvider == "hashed" {
		return emb, nil
	}
	if cfg.RateLimit > 0 {
		emb = embedding.NewRateLimited(emb, cfg.RateLimit, cfg.RateBurst)
	}
	if cfg.EmbedCache {
		cached, err := embedding.NewCachedEmbedder(emb, cfg.EmbedModel, cfg.Path("embed_cache.db"))
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, cached.Close)
		emb = cached
	}
	return emb, nil
}

func (e *env) memory(ctx context.Context) (*store.VectorStore, error) {
	emb, err := e.embedder()
	if err != nil {
		return nil, err
	}
	mem, err := store.Open(ctx, e.cfg.Path("memory"), emb, store.Options{Dims: e.cfg.EmbedDims})
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, mem.Close)
	if mem.Repaired > 0 {
		e.log.Warn().Int("dropped", mem.Repaired).Msg("memory store realigned")
	}
	return mem, nil
}

func (e *env) weights() (map[string]*weights.Store, error) {
	seeds := map[string]weights.Weights{
		"mood":      e.profile.Moods,
		"curiosity": e.profile.Curiosities,
		"style":     e.profile.Styles,
	}
	out := make(map[string]*weights.Store, len(seeds))
	for _, name := range weightNames {
		s, err := weights.Open(e.cfg.Path(name+".json"), seeds[name], weights.Options{
			Decay: e.cfg.WeightDecay,
			Boost: e.cfg.WeightBoost,
			Rand:  e.rng,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s weights: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

func (e *env) identity() (*identity.Store, error) {
	return identity.Open(e.cfg.Path("identity.json"), e.profile.Summary)
}

func (e *env) vocabulary() (*vocab.Store, error) {
	return vocab.Open(e.cfg.Path("vocabulary.json"), e.profile.Vocabulary, e.rng)
}

func (e *env) generator() (llm.Generator, error) {
	cfg := e.cfg
	gen, err := llm.New(llm.Options{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	if cfg.RateLimit > 0 {
		gen = llm.NewRateLimited(gen, cfg.RateLimit, cfg.RateBurst)
	}
	return gen, nil
}

// publisher appends every post to posts.txt and, when a bot token and
// channel are configured, sends it to Discord as well.
func (e *env) publisher() (publish.Publisher, error) {
	pubs := publish.Multi{publish.NewFile(e.cfg.Path("posts.txt"))}
	if e.cfg.DiscordToken != "" && e.cfg.DiscordChannel != "" {
		d, err := publish.NewDiscord(e.cfg.DiscordToken, e.cfg.DiscordChannel)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, d.Close)
		pubs = append(pubs, d)
	}
	return pubs, nil
}

// agent wires every store and collaborator into an Agent resuming from the
// saved state.
func (e *env) agent(ctx context.Context) (*agent.Agent, error) {
	settings, err := agent.SettingsFromConfig(e.cfg)
	if err != nil {
		return nil, err
	}
	state, err := agent.LoadState(settings.StatePath)
	if err != nil {
		return nil, err
	}

	mem, err := e.memory(ctx)
	if err != nil {
		return nil, err
	}
	ws, err := e.weights()
	if err != nil {
		return nil, err
	}
	id, err := e.identity()
	if err != nil {
		return nil, err
	}
	voc, err := e.vocabulary()
	if err != nil {
		return nil, err
	}
	gen, err := e.generator()
	if err != nil {
		return nil, err
	}
	pub, err := e.publisher()
	if err != nil {
		return nil, err
	}

	return agent.New(agent.Deps{
		Memory:    mem,
		Identity:  id,
		Vocab:     voc,
		Mood:      ws["mood"],
		Curiosity: ws["curiosity"],
		Style:     ws["style"],
		LLM:       gen,
		Publisher: pub,
		Profile:   e.profile,
		Log:       logging.Component(e.log, "agent"),
		Rand:      e.rng,
	}, settings, state), nil
}
