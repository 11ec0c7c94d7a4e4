package index

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/embed"
)

// Vector ranks chunks by cosine similarity between embeddings.
type Vector struct {
	embedder embed.Embedder

	mu      sync.RWMutex
	chunks  []doctree.Chunk
	vectors [][]float64
}

func NewVector(e embed.Embedder) *Vector {
	return &Vector{embedder: e}
}

func (x *Vector) Create(ctx context.Context, set *doctree.ChunkSet) error {
	chunks := append([]doctree.Chunk(nil), set.Chunks...)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: expected %d vectors, got %d", len(chunks), len(vectors))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks, x.vectors = chunks, vectors
	return nil
}

func (x *Vector) Search(ctx context.Context, query string, k int) (*SearchResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.vectors == nil {
		return nil, ErrNotBuilt
	}

	q, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(q))
	}
	scores := make([]float64, len(x.vectors))
	for i, v := range x.vectors {
		scores[i] = cosine(q[0], v)
	}
	return buildResult(query, x.chunks, scores, rank(scores, k, math.Inf(-1))), nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
