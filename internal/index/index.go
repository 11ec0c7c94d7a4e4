// Package index searches a finished chunk set.
package index

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// ErrNotBuilt is returned by Search before Create has succeeded.
var ErrNotBuilt = errors.New("index has not been created")

// Match is one ranked search hit.
type Match struct {
	ChunkID   string  `json:"chunk_id"`
	SectionID string  `json:"section_id"`
	Text      string  `json:"chunk_text"`
	Rank      int     `json:"rank"` // 1-based
	Score     float64 `json:"score"`
}

// SearchResult is the ranked answer to one query.
type SearchResult struct {
	Query   string  `json:"query"`
	Matches []Match `json:"matches"`
}

// Indexer consumes a chunk set and answers ranked queries over it.
type Indexer interface {
	Create(ctx context.Context, set *doctree.ChunkSet) error
	Search(ctx context.Context, query string, k int) (*SearchResult, error)
}

// tokenize lowercases text and splits it into letter/digit runs.
func tokenize(text string, stop map[string]bool) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(stop) == 0 {
		return words
	}
	out := words[:0]
	for _, w := range words {
		if !stop[w] {
			out = append(out, w)
		}
	}
	return out
}

// rank orders corpus positions by descending score, ties by position, and
// keeps at most k. Positions with score <= floor are dropped.
func rank(scores []float64, k int, floor float64) []int {
	idx := make([]int, 0, len(scores))
	for i, s := range scores {
		if s > floor {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	if k >= 0 && k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

func buildResult(query string, chunks []doctree.Chunk, scores []float64, order []int) *SearchResult {
	res := &SearchResult{Query: query, Matches: make([]Match, 0, len(order))}
	for n, i := range order {
		c := chunks[i]
		res.Matches = append(res.Matches, Match{
			ChunkID:   c.ID,
			SectionID: c.SectionID,
			Text:      c.Text,
			Rank:      n + 1,
			Score:     scores[i],
		})
	}
	return res
}
