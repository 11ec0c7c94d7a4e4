package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docsplit/internal/eval"
	"github.com/dgallion1/docsplit/internal/index"
)

type evalOutput struct {
	File   string `json:"file"`
	Method string `json:"chunking_method"`
	Index  string `json:"index"`
	eval.Evaluation
}

func (a *app) newEvalCommand() *cobra.Command {
	var (
		flags chunkFlags
		ks    []int
	)

	cmd := &cobra.Command{
		Use:   "eval <file> <questions.yaml>",
		Short: "Score retrieval quality against judged questions",
		Long: `Chunks and indexes the file, runs every question from the YAML file as a
query and scores the ranked chunks with MAP, NDCG, Recall, Precision and
Reciprocal Rank at each cutoff in --k-values.

A chunk is relevant to a question when its ID is listed under
relevant_chunk_ids or its text contains one of the phrases.

questions.yaml:
  - question: Hvordan installerer jeg programmet?
    phrases: ["go run"]
  - question: Hvad er et databrud?
    relevant_chunk_ids: ["5f0c2b1e-..."]`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, &flags); err != nil {
				return err
			}
			if len(ks) == 0 {
				return fmt.Errorf("--k-values needs at least one cutoff")
			}
			for _, k := range ks {
				if k <= 0 {
					return fmt.Errorf("--k-values must be positive, got %d", k)
				}
			}
			questions, err := loadQuestions(args[1])
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			set, idx, err := a.buildIndex(ctx, args[0])
			if err != nil {
				return err
			}
			maxK := slices.Max(ks)
			results := make(map[string]*index.SearchResult, len(questions))
			for _, q := range questions {
				res, err := idx.Search(ctx, q.Query, maxK)
				if err != nil {
					return fmt.Errorf("search %q: %w", q.Query, err)
				}
				results[q.Query] = res
			}
			ev := eval.Evaluate(questions, set, results, ks)

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(evalOutput{
					File:       args[0],
					Method:     a.cfg.Chunk.Method,
					Index:      a.cfg.Index.Kind,
					Evaluation: *ev,
				})
			}
			printEvaluation(out, ev)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntSliceVarP(&ks, "k-values", "k", []int{1, 3, 5}, "Rank cutoffs, comma separated")

	return cmd
}

// printEvaluation lists each question's reciprocal rank at the largest
// cutoff, then a table of mean scores with one row per measure.
func printEvaluation(w io.Writer, ev *eval.Evaluation) {
	maxK := ev.KValues[len(ev.KValues)-1]
	rrName := fmt.Sprintf("%s@%d", eval.MeasureReciprocalRank, maxK)

	green := color.New(color.FgGreen).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	for _, q := range ev.Queries {
		var rr float64
		for _, m := range q.Metrics {
			if m.Name() == rrName {
				rr = m.Value
			}
		}
		score := green("%.3f", rr)
		if rr == 0 {
			score = red("%.3f", rr)
		}
		fmt.Fprintf(w, "%s  %s\n", score, q.Query)
	}

	bold := color.New(color.Bold)
	bold.Fprintf(w, "\n%-16s", "measure")
	for _, k := range ev.KValues {
		bold.Fprintf(w, "%8s", fmt.Sprintf("@%d", k))
	}
	fmt.Fprintln(w)
	for _, name := range eval.Measures {
		fmt.Fprintf(w, "%-16s", name)
		for _, k := range ev.KValues {
			fmt.Fprintf(w, "%8.3f", ev.Mean[fmt.Sprintf("%s@%d", name, k)])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "(%d questions)\n", len(ev.Queries))
}

func loadQuestions(path string) ([]eval.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	var questions []eval.Question
	if err := yaml.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions %s: %w", path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%s contains no questions", path)
	}
	return questions, nil
}
