package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/index"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

func (a *app) newSearchCommand() *cobra.Command {
	var (
		flags chunkFlags
		k     int
	)

	cmd := &cobra.Command{
		Use:   "search <file> <query>",
		Short: "Rank a document's chunks against a query",
		Long: `Chunks the file, builds the configured index over the chunks and prints
the k best matches.

Example:
  docsplit search handbook.md "hvordan installerer jeg" -k 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, &flags); err != nil {
				return err
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
			if a.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printMatches(cmd.OutOrStdout(), res)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&k, "top", "k", 5, "Number of matches to return")

	return cmd
}

// buildIndex chunks path and indexes the chunk set with the configured
// index kind.
func (a *app) buildIndex(ctx context.Context, path string) (*doctree.ChunkSet, index.Indexer, error) {
	_, set, err := a.parseAndChunk(path)
	if err != nil {
		return nil, nil, err
	}
	idx := pipeline.IndexFactory(a.cfg, nil)()
	if err := idx.Create(ctx, set); err != nil {
		return nil, nil, fmt.Errorf("build %s index: %w", a.cfg.Index.Kind, err)
	}
	a.log.Debug("index built", "path", path, "kind", a.cfg.Index.Kind, "chunks", set.Len())
	return set, idx, nil
}

func printMatches(w io.Writer, res *index.SearchResult) {
	if len(res.Matches) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No matches")
		return
	}
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	for _, m := range res.Matches {
		bold.Fprintf(w, "%d. ", m.Rank)
		dim.Fprintf(w, "[%.3f] ", m.Score)
		fmt.Fprintln(w, strings.Join(strings.Fields(m.Text), " "))
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
