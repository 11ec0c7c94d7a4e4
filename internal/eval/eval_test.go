package eval

import (
	"math"
	"testing"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/index"
)

// ranked builds a result whose matches have the given IDs and descending
// scores len(ids), ..., 1.
func ranked(ids ...string) *index.SearchResult {
	res := &index.SearchResult{}
	for i, id := range ids {
		res.Matches = append(res.Matches, index.Match{ChunkID: id, Text: id, Rank: i + 1, Score: float64(len(ids) - i)})
	}
	return res
}

func set(ids ...string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func values(metrics []Metric) map[string]float64 {
	out := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		out[m.Name()] = m.Value
	}
	return out
}

func TestScore(t *testing.T) {
	log2of3 := math.Log2(3)
	tests := []struct {
		name     string
		relevant map[string]bool
		res      *index.SearchResult
		ks       []int
		want     map[string]float64
	}{
		{
			// a . c . : hits at ranks 1 and 3 of 2 relevant.
			name:     "two relevant",
			relevant: set("a", "c"),
			res:      ranked("a", "b", "c", "d"),
			ks:       []int{1, 2, 4},
			want: map[string]float64{
				"Precision@1": 1, "Precision@2": 0.5, "Precision@4": 0.5,
				"Recall@1": 0.5, "Recall@2": 0.5, "Recall@4": 1,
				"MAP@1": 0.5, "MAP@2": 0.5, "MAP@4": (1 + 2.0/3) / 2,
				"NDCG@1": 1, "NDCG@2": 1 / (1 + 1/log2of3), "NDCG@4": 1.5 / (1 + 1/log2of3),
				"Reciprocal Rank@1": 1, "Reciprocal Rank@2": 1, "Reciprocal Rank@4": 1,
			},
		},
		{
			// . b : one relevant at rank 2, fewer results than k.
			name:     "late hit",
			relevant: set("b"),
			res:      ranked("a", "b"),
			ks:       []int{1, 2, 4},
			want: map[string]float64{
				"Precision@1": 0, "Precision@2": 0.5, "Precision@4": 0.25,
				"Recall@1": 0, "Recall@2": 1, "Recall@4": 1,
				"MAP@1": 0, "MAP@2": 0.5, "MAP@4": 0.5,
				"NDCG@1": 0, "NDCG@2": 1 / log2of3, "NDCG@4": 1 / log2of3,
				"Reciprocal Rank@1": 0, "Reciprocal Rank@2": 0.5, "Reciprocal Rank@4": 0.5,
			},
		},
		{
			name:     "miss",
			relevant: set("z"),
			res:      ranked("a", "b", "c"),
			ks:       []int{3},
			want: map[string]float64{
				"Precision@3": 0, "Recall@3": 0, "MAP@3": 0, "NDCG@3": 0, "Reciprocal Rank@3": 0,
			},
		},
		{
			name:     "nothing relevant",
			relevant: set(),
			res:      ranked("a"),
			ks:       []int{1},
			want: map[string]float64{
				"Precision@1": 0, "Recall@1": 0, "MAP@1": 0, "NDCG@1": 0, "Reciprocal Rank@1": 0,
			},
		},
		{
			name:     "no result",
			relevant: set("a"),
			res:      nil,
			ks:       []int{2},
			want: map[string]float64{
				"Precision@2": 0, "Recall@2": 0, "MAP@2": 0, "NDCG@2": 0, "Reciprocal Rank@2": 0,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := values(Score(tt.relevant, tt.res, tt.ks))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d metrics, got %d: %v", len(tt.want), len(got), got)
			}
			for name, w := range tt.want {
				if g, ok := got[name]; !ok || math.Abs(g-w) > 1e-9 {
					t.Errorf("%s: expected %.6f, got %.6f", name, w, g)
				}
			}
		})
	}
}

func TestScore_RanksByScoreAndDropsRepeats(t *testing.T) {
	// The index listed b first, but a scores higher; a repeated a is ignored.
	res := &index.SearchResult{Matches: []index.Match{
		{ChunkID: "b", Score: 2},
		{ChunkID: "a", Score: 7},
		{ChunkID: "a", Score: 7},
		{ChunkID: "c", Score: 1},
	}}
	got := values(Score(set("c"), res, []int{3}))
	if got["Reciprocal Rank@3"] != 1.0/3 {
		t.Errorf("expected c at rank 3, got RR %f", got["Reciprocal Rank@3"])
	}
	if got["Precision@3"] != 1.0/3 {
		t.Errorf("expected 1 hit in 3, got precision %f", got["Precision@3"])
	}
}

func TestNormalizeScores(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"already normalized", []float64{0.9, 0.2}, []float64{0.9, 0.2}},
		{"min-max scaled", []float64{3, 1, 2}, []float64{1, 0, 0.5}},
		{"all equal", []float64{5, 5}, []float64{1, 1}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeScores(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestRelevant(t *testing.T) {
	cs := &doctree.ChunkSet{Chunks: []doctree.Chunk{
		{ID: "c1", Text: "København er hovedstaden."},
		{ID: "c2", Text: "Æbler og pærer"},
		{ID: "c3", Text: "Aalborg ligger nord for København"},
	}}
	q := Question{Query: "hovedstad", RelevantChunkIDs: []string{"c9"}, Phrases: []string{"København", ""}}
	got := Relevant(q, cs)
	want := set("c1", "c3", "c9")
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for id := range want {
		if !got[id] {
			t.Errorf("expected %s to be relevant", id)
		}
	}
	if len(Relevant(Question{Phrases: []string{"x"}}, nil)) != 0 {
		t.Error("expected no judgments without ids or a chunk set")
	}
}

func TestEvaluate(t *testing.T) {
	cs := &doctree.ChunkSet{Chunks: []doctree.Chunk{
		{ID: "a", Text: "København er hovedstaden."},
		{ID: "b", Text: "Æbler og pærer"},
	}}
	questions := []Question{
		{Query: "hovedstad", Phrases: []string{"København"}},
		{Query: "frugt", RelevantChunkIDs: []string{"b"}},
		{Query: "ukendt", Phrases: []string{"Odense"}},
	}
	results := map[string]*index.SearchResult{
		"hovedstad": ranked("a", "b"),
		"frugt":     ranked("a", "b"),
	}

	ev := Evaluate(questions, cs, results, []int{2, 1, 2})
	if len(ev.KValues) != 2 || ev.KValues[0] != 1 || ev.KValues[1] != 2 {
		t.Errorf("expected sorted unique cutoffs [1 2], got %v", ev.KValues)
	}
	if len(ev.Queries) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(ev.Queries))
	}
	if q := ev.Queries[0]; len(q.RelevantChunkIDs) != 1 || q.RelevantChunkIDs[0] != "a" {
		t.Errorf("expected phrase judgment to resolve to a, got %v", q.RelevantChunkIDs)
	}
	if ev.Queries[2].Retrieved != nil {
		t.Errorf("expected no retrieved chunks for a missing result, got %v", ev.Queries[2].Retrieved)
	}
	for _, m := range ev.Queries[1].Metrics {
		if m.QueryID != questions[1].ID() || m.Query != "frugt" {
			t.Errorf("expected metric tagged with the question, got %+v", m)
		}
	}

	// RR: 1, 1/2, 0 at k=2; 1, 0, 0 at k=1.
	if got := ev.Mean["Reciprocal Rank@2"]; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected MRR@2 0.5, got %f", got)
	}
	if got := ev.Mean["Reciprocal Rank@1"]; math.Abs(got-1.0/3) > 1e-12 {
		t.Errorf("expected MRR@1 1/3, got %f", got)
	}
	if got := ev.Mean["Precision@2"]; math.Abs(got-1.0/3) > 1e-12 {
		t.Errorf("expected mean P@2 1/3, got %f", got)
	}
	if len(ev.Mean) != 2*len(Measures) {
		t.Errorf("expected %d means, got %d", 2*len(Measures), len(ev.Mean))
	}
}

func TestQuestion_StableID(t *testing.T) {
	q := Question{Query: "hvad"}
	if q.ID() == "" || q.ID() != (Question{Query: "hvad"}).ID() {
		t.Errorf("expected a stable non-empty id, got %q", q.ID())
	}
	if q.ID() == (Question{Query: "hvem"}).ID() {
		t.Error("expected different queries to get different ids")
	}
}

func TestMean(t *testing.T) {
	if Mean(nil) != 0 {
		t.Error("expected 0 for no metrics")
	}
	got := Mean([]Metric{{Value: 1}, {Value: 0.5}, {Value: 0}})
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("expected 0.5, got %f", got)
	}
}
