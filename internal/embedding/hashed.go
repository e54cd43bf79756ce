package embedding

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"unicode"

	"github.com/zeebo/blake3"
)

// DefaultHashedDims is the dimension used by HashedEmbedder when none is set.
const DefaultHashedDims = 256

// HashedEmbedder is an offline bag-of-words embedder. Each lowercased word is
// hashed into one of dims buckets with a sign bit, and the result is
// L2-normalized. Texts sharing words score higher under cosine similarity.
type HashedEmbedder struct {
	dims int
}

// NewHashedEmbedder returns a HashedEmbedder with the given dimension.
func NewHashedEmbedder(dims int) *HashedEmbedder {
	if dims <= 0 {
		dims = DefaultHashedDims
	}
	return &HashedEmbedder{dims: dims}
}

func (h *HashedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := make(Vector, h.dims)
	words := strings.FieldsFunc(strings.ToLower(truncate(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		sum := blake3.Sum256([]byte(w))
		bucket := binary.LittleEndian.Uint32(sum[:4]) % uint32(h.dims)
		if sum[4]&1 == 1 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		// No words: a fixed unit vector keeps the result usable.
		v[0] = 1
		return v, nil
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, nil
}

func (h *HashedEmbedder) Dims() int { return h.dims }
