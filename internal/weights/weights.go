// Package weights implements the persistent weighted-category store behind the
// mood, curiosity and style engines.
//
// Every selection decays all weights by a constant factor and then boosts the
// chosen label, so frequent picks dominate for a while but never monopolize,
// and unchosen labels shrink toward zero without reaching it.
package weights

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/rcliao/emergent-mind/internal/jsonfile"
	"github.com/rcliao/emergent-mind/internal/model"
)

const (
	DefaultDecay = 0.9
	DefaultBoost = 0.5
)

// Weights maps a category label to a non-negative weight.
type Weights map[string]float64

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Labels returns the labels in sorted order.
func (w Weights) Labels() []string {
	labels := make([]string, 0, len(w))
	for k := range w {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// Total returns the sum of all weights.
func (w Weights) Total() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

func (w Weights) validate() error {
	for k, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("label %q has invalid weight %v", k, v)
		}
	}
	return nil
}

// Load returns the mapping persisted at path. When no file exists yet, seed is
// persisted and a copy of it returned. An existing file that is corrupt or
// holds negative weights is an ErrStorage and is never reseeded.
func Load(path string, seed Weights) (Weights, error) {
	if seed == nil {
		seed = Weights{}
	}
	var w Weights
	if _, err := jsonfile.ReadOrSeed(path, seed, &w); err != nil {
		return nil, err
	}
	if w == nil {
		w = Weights{}
	}
	if err := w.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrStorage, path, err)
	}
	return w, nil
}

// Save persists w to path atomically.
func Save(path string, w Weights) error {
	return jsonfile.Write(path, w)
}

// Draw picks one label with probability proportional to its weight.
func Draw(w Weights, rng *rand.Rand) (string, error) {
	total := w.Total()
	if len(w) == 0 || total <= 0 {
		return "", fmt.Errorf("%w: cannot draw from an empty or all-zero mapping", model.ErrInvalidState)
	}

	labels := w.Labels()
	r := rng.Float64() * total
	var cum float64
	last := ""
	for _, l := range labels {
		if w[l] <= 0 {
			continue
		}
		cum += w[l]
		last = l
		if r < cum {
			return l, nil
		}
	}
	// Floating point rounding can leave r == total.
	return last, nil
}

// Update multiplies every weight by decay and then adds boost to chosen.
// The mapping is mutated in place and returned.
func Update(w Weights, chosen string, decay, boost float64) Weights {
	for k := range w {
		w[k] *= decay
	}
	w[chosen] += boost
	return w
}
