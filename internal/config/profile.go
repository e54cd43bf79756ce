package config

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/emergent-mind/internal/model"
)

// Mode is a post length mode.
type Mode struct {
	Name        string  `yaml:"name" json:"name"`
	Probability float64 `yaml:"probability" json:"probability"`
	MaxChars    int     `yaml:"max_chars" json:"max_chars"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Instruction string  `yaml:"instruction" json:"instruction"`
}

// Profile is the agent's personality: seeds, styles and length modes.
type Profile struct {
	Persona           string             `yaml:"persona"`
	Interests         string             `yaml:"interests"`
	Summary           string             `yaml:"summary"`
	Modes             []Mode             `yaml:"modes"`
	Moods             map[string]float64 `yaml:"moods"`
	Curiosities       map[string]float64 `yaml:"curiosities"`
	Styles            map[string]float64 `yaml:"styles"`
	StyleInstructions map[string]string  `yaml:"style_instructions"`
	Vocabulary        model.Vocabulary   `yaml:"vocabulary"`
}

// LoadProfile reads the YAML profile at path. An empty path yields
// DefaultProfile. Sections the file leaves out are taken from the default.
func LoadProfile(path string) (*Profile, error) {
	def := DefaultProfile()
	if path == "" {
		return def, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: profile %s not found", model.ErrValidation, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read profile: %v", model.ErrStorage, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parse profile: %v", model.ErrValidation, err)
	}

	if p.Persona == "" {
		p.Persona = def.Persona
	}
	if p.Interests == "" {
		p.Interests = def.Interests
	}
	if p.Summary == "" {
		p.Summary = def.Summary
	}
	if len(p.Modes) == 0 {
		p.Modes = def.Modes
	}
	if len(p.Moods) == 0 {
		p.Moods = def.Moods
	}
	if len(p.Curiosities) == 0 {
		p.Curiosities = def.Curiosities
	}
	if len(p.Styles) == 0 {
		p.Styles = def.Styles
		p.StyleInstructions = def.StyleInstructions
	}
	if len(p.Vocabulary.Stopwords) == 0 {
		p.Vocabulary.Stopwords = def.Vocabulary.Stopwords
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that the modes form a distribution and every seed is usable.
func (p *Profile) Validate() error {
	if len(p.Modes) == 0 {
		return fmt.Errorf("%w: profile has no modes", model.ErrValidation)
	}
	var sum float64
	seen := map[string]bool{}
	for _, m := range p.Modes {
		if m.Name == "" || seen[m.Name] {
			return fmt.Errorf("%w: mode name %q is empty or repeated", model.ErrValidation, m.Name)
		}
		seen[m.Name] = true
		if m.Probability < 0 || m.MaxChars <= 0 || m.MaxTokens <= 0 || m.Temperature < 0 {
			return fmt.Errorf("%w: mode %q has out-of-range bounds", model.ErrValidation, m.Name)
		}
		sum += m.Probability
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("%w: mode probabilities sum to %v, want 1", model.ErrValidation, sum)
	}

	for name, seeds := range map[string]map[string]float64{
		"moods": p.Moods, "curiosities": p.Curiosities, "styles": p.Styles,
	} {
		if len(seeds) == 0 {
			return fmt.Errorf("%w: profile has no %s", model.ErrValidation, name)
		}
		for label, w := range seeds {
			if w < 0 || math.IsNaN(w) {
				return fmt.Errorf("%w: %s weight for %q is invalid", model.ErrValidation, name, label)
			}
		}
	}
	for style := range p.Styles {
		if p.StyleInstructions[style] == "" {
			return fmt.Errorf("%w: style %q has no instruction", model.ErrValidation, style)
		}
	}
	return nil
}

// Mode returns the named mode.
func (p *Profile) Mode(name string) (Mode, bool) {
	for _, m := range p.Modes {
		if m.Name == name {
			return m, true
		}
	}
	return Mode{}, false
}

// ChooseMode picks a mode by cumulative probability, falling back to the last.
func (p *Profile) ChooseMode(rng *rand.Rand) Mode {
	r := rng.Float64()
	var cum float64
	for _, m := range p.Modes {
		cum += m.Probability
		if r < cum {
			return m
		}
	}
	return p.Modes[len(p.Modes)-1]
}

// StyleInstruction returns the instruction for style, or "" if none is set.
func (p *Profile) StyleInstruction(style string) string {
	return p.StyleInstructions[style]
}

// StyleNames returns the configured styles in sorted order.
func (p *Profile) StyleNames() []string {
	names := make([]string, 0, len(p.Styles))
	for s := range p.Styles {
		names = append(names, s)
	}
	sort.Strings(names)
	return names
}
