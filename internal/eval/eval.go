// Package eval scores retrieval results against known relevant chunks with
// the usual IR measures at one or more rank cutoffs.
package eval

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/index"
)

// Measure names.
const (
	MeasureMAP            = "MAP"
	MeasureNDCG           = "NDCG"
	MeasureRecall         = "Recall"
	MeasurePrecision      = "Precision"
	MeasureReciprocalRank = "Reciprocal Rank"
)

// Measures lists every measure in report order.
var Measures = []string{MeasureMAP, MeasureNDCG, MeasureRecall, MeasurePrecision, MeasureReciprocalRank}

// Question is a query with its relevance judgments: chunk IDs known to
// answer it, phrases an answering chunk contains, or both.
type Question struct {
	Query            string   `json:"question" yaml:"question"`
	RelevantChunkIDs []string `json:"relevant_chunk_ids,omitempty" yaml:"relevant_chunk_ids"`
	Phrases          []string `json:"phrases,omitempty" yaml:"phrases"`
}

// ID is a stable identifier derived from the query text.
func (q Question) ID() string {
	return doctree.GenerateID([]string{q.Query})
}

// Metric is one per-query score.
type Metric struct {
	QueryID string  `json:"query_id"`
	Query   string  `json:"query"`
	Measure string  `json:"measure_name"`
	K       int     `json:"k"`
	Value   float64 `json:"value"`
}

// Name is the measure with its cutoff, e.g. "NDCG@5".
func (m Metric) Name() string {
	return fmt.Sprintf("%s@%d", m.Measure, m.K)
}

// QueryEvaluation is the outcome for one question.
type QueryEvaluation struct {
	QueryID          string        `json:"query_id"`
	Query            string        `json:"question"`
	RelevantChunkIDs []string      `json:"relevant_chunk_ids"`
	Retrieved        []index.Match `json:"retrieved_chunks"`
	Metrics          []Metric      `json:"metric_scores"`
}

// Evaluation is the outcome for a question set.
type Evaluation struct {
	KValues []int              `json:"k_values"`
	Queries []QueryEvaluation  `json:"queries"`
	Mean    map[string]float64 `json:"mean_metric_scores"`
}

// Relevant resolves q's judgments against set: the listed chunk IDs plus
// every chunk whose text contains one of the phrases. set may be nil when
// the question lists IDs only.
func Relevant(q Question, set *doctree.ChunkSet) map[string]bool {
	rel := make(map[string]bool, len(q.RelevantChunkIDs))
	for _, id := range q.RelevantChunkIDs {
		rel[id] = true
	}
	if set != nil {
		for _, c := range set.Chunks {
			if containsAny(c.Text, q.Phrases) {
				rel[c.ID] = true
			}
		}
	}
	return rel
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// NormalizeScores maps retrieval scores into [0, 1]. Scores whose maximum is
// at most 1 are returned unchanged; otherwise they are min-max scaled, and a
// list of equal scores becomes all ones.
func NormalizeScores(scores []float64) []float64 {
	out := slices.Clone(scores)
	if len(scores) == 0 {
		return out
	}
	lo, hi := slices.Min(scores), slices.Max(scores)
	if hi <= 1 {
		return out
	}
	for i, s := range scores {
		if lo == hi {
			out[i] = 1
		} else {
			out[i] = (s - lo) / (hi - lo)
		}
	}
	return out
}

// ranking orders matches by normalized score, highest first, dropping
// repeated chunk IDs. Equal scores keep the index's order.
func ranking(matches []index.Match) []string {
	scores := make([]float64, len(matches))
	for i, m := range matches {
		scores[i] = m.Score
	}
	norm := NormalizeScores(scores)
	order := make([]int, len(matches))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return norm[order[a]] > norm[order[b]] })

	seen := make(map[string]bool, len(matches))
	ids := make([]string, 0, len(matches))
	for _, i := range order {
		id := matches[i].ChunkID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Score computes every measure at every cutoff in ks for one ranked result
// against the relevant chunk IDs. Binary relevance is assumed throughout:
//
//	Precision@k  relevant in top k / k
//	Recall@k     relevant in top k / |relevant|
//	MAP@k        sum of precision at each relevant rank <= k / |relevant|
//	NDCG@k       DCG of the top k / DCG of an ideal ranking, gains 1/log2(rank+1)
//	RR@k         1 / rank of the first relevant chunk in the top k
//
// Measures divided by |relevant| are 0 when nothing is relevant.
func Score(relevant map[string]bool, res *index.SearchResult, ks []int) []Metric {
	var ranked []string
	if res != nil {
		ranked = ranking(res.Matches)
	}
	total := float64(len(relevant))

	metrics := make([]Metric, 0, len(ks)*len(Measures))
	for _, k := range ks {
		var hits, precisionSum, dcg, rr float64
		for i, id := range ranked[:min(k, len(ranked))] {
			if !relevant[id] {
				continue
			}
			rank := float64(i + 1)
			hits++
			precisionSum += hits / rank
			dcg += 1 / math.Log2(rank+1)
			if rr == 0 {
				rr = 1 / rank
			}
		}
		var idcg float64
		for i := 1; i <= min(k, len(relevant)); i++ {
			idcg += 1 / math.Log2(float64(i)+1)
		}

		values := map[string]float64{
			MeasurePrecision:      hits / float64(k),
			MeasureReciprocalRank: rr,
		}
		if total > 0 {
			values[MeasureRecall] = hits / total
			values[MeasureMAP] = precisionSum / total
			values[MeasureNDCG] = dcg / idcg
		}
		for _, name := range Measures {
			metrics = append(metrics, Metric{Measure: name, K: k, Value: values[name]})
		}
	}
	return metrics
}

// Evaluate scores every question's result. set resolves phrase judgments
// and may be nil. ks must be positive; duplicates are dropped and the
// cutoffs are reported in ascending order. Questions without a result score
// 0 on every measure.
func Evaluate(questions []Question, set *doctree.ChunkSet, results map[string]*index.SearchResult, ks []int) *Evaluation {
	ks = slices.Compact(slices.Sorted(slices.Values(ks)))
	ev := &Evaluation{
		KValues: ks,
		Queries: make([]QueryEvaluation, 0, len(questions)),
		Mean:    make(map[string]float64),
	}
	var all []Metric
	for _, q := range questions {
		rel := Relevant(q, set)
		res := results[q.Query]

		qe := QueryEvaluation{
			QueryID:          q.ID(),
			Query:            q.Query,
			RelevantChunkIDs: make([]string, 0, len(rel)),
			Metrics:          Score(rel, res, ks),
		}
		for id := range rel {
			qe.RelevantChunkIDs = append(qe.RelevantChunkIDs, id)
		}
		slices.Sort(qe.RelevantChunkIDs)
		if res != nil {
			qe.Retrieved = res.Matches
		}
		for i := range qe.Metrics {
			qe.Metrics[i].QueryID = qe.QueryID
			qe.Metrics[i].Query = q.Query
		}
		all = append(all, qe.Metrics...)
		ev.Queries = append(ev.Queries, qe)
	}

	byName := make(map[string][]Metric)
	for _, m := range all {
		byName[m.Name()] = append(byName[m.Name()], m)
	}
	for name, ms := range byName {
		ev.Mean[name] = Mean(ms)
	}
	return ev
}

// Mean averages metric values; it is 0 for no metrics.
func Mean(metrics []Metric) float64 {
	if len(metrics) == 0 {
		return 0
	}
	var sum float64
	for _, m := range metrics {
		sum += m.Value
	}
	return sum / float64(len(metrics))
}
