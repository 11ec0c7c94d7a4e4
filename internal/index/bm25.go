package index

import (
	"context"
	"math"
	"sync"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// BM25 is an in-memory Okapi BM25 index over chunk texts.
type BM25 struct {
	stop map[string]bool

	mu     sync.RWMutex
	chunks []doctree.Chunk
	tf     []map[string]int
	length []int
	df     map[string]int
	avgLen float64
}

// NewBM25 builds an empty index that ignores the given stop words.
func NewBM25(stopWords []string) *BM25 {
	stop := make(map[string]bool, len(stopWords))
	for _, w := range stopWords {
		stop[w] = true
	}
	return &BM25{stop: stop}
}

func (x *BM25) Create(ctx context.Context, set *doctree.ChunkSet) error {
	chunks := append([]doctree.Chunk(nil), set.Chunks...)
	tf := make([]map[string]int, len(chunks))
	length := make([]int, len(chunks))
	df := make(map[string]int)
	total := 0

	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		terms := tokenize(c.Text, x.stop)
		counts := make(map[string]int, len(terms))
		for _, t := range terms {
			counts[t]++
		}
		for t := range counts {
			df[t]++
		}
		tf[i] = counts
		length[i] = len(terms)
		total += len(terms)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.chunks, x.tf, x.length, x.df = chunks, tf, length, df
	x.avgLen = 0
	if len(chunks) > 0 {
		x.avgLen = float64(total) / float64(len(chunks))
	}
	return nil
}

func (x *BM25) Search(ctx context.Context, query string, k int) (*SearchResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.tf == nil {
		return nil, ErrNotBuilt
	}

	n := float64(len(x.chunks))
	scores := make([]float64, len(x.chunks))
	for _, term := range tokenize(query, x.stop) {
		df := x.df[term]
		if df == 0 {
			continue
		}
		idf := math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
		for i, counts := range x.tf {
			f := float64(counts[term])
			if f == 0 {
				continue
			}
			norm := 1 - bm25B
			if x.avgLen > 0 {
				norm += bm25B * float64(x.length[i]) / x.avgLen
			}
			scores[i] += idf * f * (bm25K1 + 1) / (f + bm25K1*norm)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buildResult(query, x.chunks, scores, rank(scores, k, 0)), nil
}
