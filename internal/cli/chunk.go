package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/export"
	"github.com/dgallion1/docsplit/internal/parser"
)

type chunkResult struct {
	path   string
	set    *doctree.ChunkSet
	output string
	err    error
}

func (a *app) newChunkCommand() *cobra.Command {
	var (
		flags  chunkFlags
		format string
		outDir string
		jobs   int
	)

	cmd := &cobra.Command{
		Use:   "chunk <file> [file...]",
		Short: "Split documents into chunks",
		Long: `Parses each file into sections and splits every section's text into chunks.

Without --out the chunk sets are written to stdout in argument order. With
--out each set is saved as <out>/<name>.chunks.<format>. Files with malformed
heading structure are reported and skipped.

Example:
  docsplit chunk notes.md --method naive --max-size 64 --overlap 16
  docsplit chunk docs/*.md --out chunks --format jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, &flags); err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if outDir == "" && f == export.XLSX {
				return fmt.Errorf("xlsx output needs --out")
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
			}

			results := a.chunkFiles(commandContext(cmd), args, f, outDir, max(jobs, 1))

			out := cmd.OutOrStdout()
			green := color.New(color.FgGreen).SprintFunc()
			var failed int
			for _, r := range results {
				switch {
				case errors.Is(r.err, parser.ErrStructure):
					a.log.Warn("skipping malformed document", "path", r.path, "error", r.err)
				case r.err != nil:
					a.log.Error("chunk failed", "path", r.path, "error", r.err)
					failed++
				case outDir != "":
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s → %s (%d chunks)\n", green("✓"), r.path, r.output, r.set.Len())
				default:
					if err := export.WriteChunkSet(out, r.set, f); err != nil {
						return err
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(export.JSON), "Output format: json | jsonl | csv | yaml | xlsx")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to save chunk sets into")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "Files processed concurrently")

	return cmd
}

// chunkFiles processes paths concurrently, at most jobs at a time, and
// returns the results in argument order.
func (a *app) chunkFiles(ctx context.Context, paths []string, f export.Format, outDir string, jobs int) []chunkResult {
	results := make([]chunkResult, len(paths))
	sem := semaphore.NewWeighted(int64(jobs))
	var wg sync.WaitGroup

	for i, path := range paths {
		results[i].path = path
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i].err = err
			continue
		}
		wg.Add(1)
		go func(r *chunkResult) {
			defer wg.Done()
			defer sem.Release(1)

			_, set, err := a.parseAndChunk(r.path)
			if err != nil {
				r.err = err
				return
			}
			r.set = set
			a.log.Debug("chunked", "path", r.path, "chunks", set.Len(), "method", string(set.Method))
			if outDir == "" {
				return
			}
			r.output = export.OutputPath(outDir, r.path, f)
			if err := export.SaveChunkSet(r.output, set); err != nil {
				r.err = fmt.Errorf("save %s: %w", r.output, err)
			}
		}(&results[i])
	}
	wg.Wait()
	return results
}
