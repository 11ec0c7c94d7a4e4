package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/index"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

func (a *app) newAskCommand() *cobra.Command {
	var (
		flags chunkFlags
		k     int
		show  bool
	)

	cmd := &cobra.Command{
		Use:   "ask <file> <question>",
		Short: "Answer a question from a document's best chunks",
		Long: `Chunks the file, retrieves the k best chunks for the question and asks the
configured chat model (llm.provider) to answer from them.

Example:
  DOCSPLIT_LLM_PROVIDER=openai docsplit ask handbook.md "hvornår skal jeg anmelde et brud?"
  docsplit ask handbook.md "hvad er et databrud?" -k 3 --show-context`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, &flags); err != nil {
				return err
			}
			chat, err := pipeline.NewChat(a.cfg)
			if err != nil {
				return err
			}
			if chat == nil {
				return errors.New("answer generation needs llm.provider (DOCSPLIT_LLM_PROVIDER) set to openai or anthropic")
			}

			ctx := commandContext(cmd)
			_, idx, err := a.buildIndex(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := idx.Search(ctx, args[1], k)
			if err != nil {
				return err
			}
			ans, err := pipeline.Generate(ctx, chat, res, a.log)
			if err != nil {
				return err
			}
			a.log.Debug("answer generated", "chunks", len(ans.Chunks), "generation_ms", ans.GenerationMs)

			out := cmd.OutOrStdout()
			if a.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ans)
			}
			fmt.Fprintln(out, ans.Answer)
			if show {
				color.New(color.Faint).Fprintln(out, "\nContext:")
				printMatches(out, &index.SearchResult{Query: ans.Query, Matches: ans.Chunks})
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&k, "top", "k", 5, "Number of chunks to answer from")
	cmd.Flags().BoolVar(&show, "show-context", false, "Print the retrieved chunks after the answer")

	return cmd
}
