package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hash is a deterministic local embedder for offline use and tests. Each
// lowercased word is hashed into one of Dims buckets with a sign taken from
// the hash, and the result is L2-normalised. Texts that share words get
// positive cosine similarity.
type Hash struct {
	Dims int
}

func NewHash(dims int) *Hash {
	if dims <= 0 {
		dims = 256
	}
	return &Hash{Dims: dims}
}

func (h *Hash) Dimensions() int { return h.Dims }

func (h *Hash) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hash) vector(text string) []float64 {
	v := make([]float64, h.Dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New64a()
		f.Write([]byte(w))
		sum := f.Sum64()
		bucket := int(sum % uint64(h.Dims))
		if sum>>63 == 1 {
			v[bucket]--
		} else {
			v[bucket]++
		}
	}
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range v {
			v[i] /= norm
		}
	}
	return v
}
