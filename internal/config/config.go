// Package config loads runtime settings from the environment and the agent
// profile from YAML.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/rcliao/emergent-mind/internal/model"
)

// Config holds environment settings. Every field has a default so an empty
// environment yields a usable configuration.
type Config struct {
	DataDir     string `env:"DATA_DIR" envDefault:"data"`
	FeedPath    string `env:"FEED_PATH"`
	ProfilePath string `env:"PROFILE_PATH"`
	Testing     bool   `env:"TESTING"`

	EmbedProvider string `env:"EMBED_PROVIDER" envDefault:"openai"`
	EmbedModel    string `env:"EMBED_MODEL" envDefault:"text-embedding-3-small"`
	EmbedBaseURL  string `env:"EMBED_BASE_URL"`
	EmbedDims     int    `env:"EMBED_DIMS" envDefault:"0"`
	EmbedCache    bool   `env:"EMBED_CACHE" envDefault:"true"`

	LLMProvider string `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMModel    string `env:"LLM_MODEL" envDefault:"gpt-4o"`
	LLMBaseURL  string `env:"LLM_BASE_URL"`
	APIKey      string `env:"OPENAI_API_KEY"`

	RateLimit float64 `env:"RATE_LIMIT" envDefault:"2"`
	RateBurst int     `env:"RATE_BURST" envDefault:"1"`

	WeightDecay float64 `env:"WEIGHT_DECAY" envDefault:"0.9"`
	WeightBoost float64 `env:"WEIGHT_BOOST" envDefault:"0.5"`

	DiverseN          int     `env:"DIVERSE_N" envDefault:"3"`
	DiverseCeiling    float64 `env:"DIVERSE_CEILING" envDefault:"0.9"`
	RankTopK          int     `env:"RANK_TOP_K" envDefault:"5"`
	RankSimWeight     float64 `env:"RANK_SIM_WEIGHT" envDefault:"0.9"`
	RankRecencyWeight float64 `env:"RANK_RECENCY_WEIGHT" envDefault:"0.6"`
	RankDecay         string  `env:"RANK_DECAY" envDefault:"linear"`

	ReflectionChance      float64 `env:"REFLECTION_CHANCE" envDefault:"0.2"`
	ForceReflection       bool    `env:"FORCE_REFLECTION" envDefault:"true"`
	ForceReflectionAfter  int     `env:"FORCE_REFLECTION_AFTER" envDefault:"3"`
	ReflectionMinMemories int     `env:"REFLECTION_MIN_MEMORIES" envDefault:"3"`

	ScheduleHours float64 `env:"SCHEDULE_HOURS" envDefault:"5"`
	SchedulePosts int     `env:"SCHEDULE_POSTS" envDefault:"10"`

	DiscordToken   string `env:"DISCORD_TOKEN"`
	DiscordChannel string `env:"DISCORD_CHANNEL_ID"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"LOG_FILE"`
}

// Load reads a .env file if one exists, then parses the environment.
func Load() (*Config, error) {
	// A missing .env is normal; the process environment still applies.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%w: parse environment: %v", model.ErrValidation, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return fmt.Errorf("%w: DATA_DIR is empty", model.ErrValidation)
	case c.EmbedDims < 0:
		return fmt.Errorf("%w: EMBED_DIMS must not be negative", model.ErrValidation)
	case c.WeightDecay <= 0 || c.WeightDecay > 1:
		return fmt.Errorf("%w: WEIGHT_DECAY must be in (0, 1]", model.ErrValidation)
	case c.WeightBoost <= 0:
		return fmt.Errorf("%w: WEIGHT_BOOST must be positive", model.ErrValidation)
	case c.ReflectionChance < 0 || c.ReflectionChance > 1:
		return fmt.Errorf("%w: REFLECTION_CHANCE must be in [0, 1]", model.ErrValidation)
	case c.SchedulePosts < 0 || c.ScheduleHours < 0:
		return fmt.Errorf("%w: schedule must not be negative", model.ErrValidation)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: RATE_LIMIT must not be negative", model.ErrValidation)
	}
	return nil
}

// Path joins name onto the data directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}

// Feed returns the perception feed path.
func (c *Config) Feed() string {
	if c.FeedPath != "" {
		return c.FeedPath
	}
	return c.Path("perception_feed.txt")
}
