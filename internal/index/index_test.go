package index

import (
	"context"
	"errors"
	"testing"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/embed"
)

func corpus() *doctree.ChunkSet {
	return &doctree.ChunkSet{
		Method: doctree.MethodParagraph,
		Chunks: []doctree.Chunk{
			{ID: "c1", SectionID: "s1", Text: "København er Danmarks hovedstad."},
			{ID: "c2", SectionID: "s1", Text: "Århus er den næststørste by i Jylland."},
			{ID: "c3", SectionID: "s2", Text: "Æbler og pærer er frugter."},
			{ID: "c4", SectionID: "s2", Text: "København har mange cykler, og København er flad."},
		},
	}
}

func TestBM25_Search(t *testing.T) {
	ctx := context.Background()
	x := NewBM25(StopWords("danish"))
	if err := x.Create(ctx, corpus()); err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := x.Search(ctx, "København", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Query != "København" {
		t.Errorf("expected query echoed, got %q", res.Query)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(res.Matches), res.Matches)
	}
	// c4 mentions the term twice.
	if res.Matches[0].ChunkID != "c4" || res.Matches[1].ChunkID != "c1" {
		t.Errorf("expected c4 then c1, got %s then %s", res.Matches[0].ChunkID, res.Matches[1].ChunkID)
	}
	for i, m := range res.Matches {
		if m.Rank != i+1 {
			t.Errorf("match %d: expected rank %d, got %d", i, i+1, m.Rank)
		}
	}
	if res.Matches[0].Score < res.Matches[1].Score {
		t.Error("expected descending scores")
	}
	if res.Matches[1].SectionID != "s1" || res.Matches[1].Text != "København er Danmarks hovedstad." {
		t.Errorf("expected chunk fields carried over, got %+v", res.Matches[1])
	}
}

func TestBM25_TopKAndStopWords(t *testing.T) {
	ctx := context.Background()
	x := NewBM25(StopWords("danish"))
	if err := x.Create(ctx, corpus()); err != nil {
		t.Fatal(err)
	}
	res, _ := x.Search(ctx, "københavn frugter", 1)
	if len(res.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(res.Matches))
	}
	res, _ = x.Search(ctx, "og er", 10)
	if len(res.Matches) != 0 {
		t.Errorf("expected stop-word-only query to match nothing, got %d", len(res.Matches))
	}
}

func TestBM25_TiesKeepCorpusOrder(t *testing.T) {
	ctx := context.Background()
	set := &doctree.ChunkSet{Chunks: []doctree.Chunk{
		{ID: "a", Text: "samme tekst"},
		{ID: "b", Text: "samme tekst"},
		{ID: "c", Text: "samme tekst"},
	}}
	x := NewBM25(nil)
	if err := x.Create(ctx, set); err != nil {
		t.Fatal(err)
	}
	res, _ := x.Search(ctx, "tekst", 3)
	for i, want := range []string{"a", "b", "c"} {
		if res.Matches[i].ChunkID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, res.Matches[i].ChunkID)
		}
	}
}

func TestSearchBeforeCreate(t *testing.T) {
	ctx := context.Background()
	if _, err := NewBM25(nil).Search(ctx, "x", 1); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt, got %v", err)
	}
	if _, err := NewVector(embed.NewHash(8)).Search(ctx, "x", 1); !errors.Is(err, ErrNotBuilt) {
		t.Errorf("expected ErrNotBuilt, got %v", err)
	}
}

func TestVector_Search(t *testing.T) {
	ctx := context.Background()
	x := NewVector(embed.NewHash(512))
	if err := x.Create(ctx, corpus()); err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := x.Search(ctx, "æbler og pærer", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(res.Matches))
	}
	if res.Matches[0].ChunkID != "c3" {
		t.Errorf("expected c3 first, got %s", res.Matches[0].ChunkID)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, &embed.RetryableError{StatusCode: 503, Message: "down"}
}
func (failingEmbedder) Dimensions() int { return 1 }

func TestVector_CreatePropagatesEmbedderError(t *testing.T) {
	err := NewVector(failingEmbedder{}).Create(context.Background(), corpus())
	var re *embed.RetryableError
	if !errors.As(err, &re) {
		t.Errorf("expected wrapped *RetryableError, got %v", err)
	}
}
