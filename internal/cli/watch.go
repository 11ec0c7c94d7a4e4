package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/export"
	"github.com/dgallion1/docsplit/internal/watch"
)

func (a *app) newWatchCommand() *cobra.Command {
	var (
		flags     chunkFlags
		recursive bool
		format    string
		outDir    string
		debounce  int
	)

	cmd := &cobra.Command{
		Use:   "watch <directory> [directory...]",
		Short: "Re-chunk documents whenever they change",
		Long: `Watches directories for new or modified documents and saves a chunk set
next to each one, or into --out. Stop with Ctrl+C.

Example:
  docsplit watch ./notes --recursive --format jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, &flags); err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			ch, err := a.chunker()
			if err != nil {
				return err
			}

			w, err := watch.New(watch.Config{
				Directories: args,
				Recursive:   recursive,
				Debounce:    time.Duration(debounce) * time.Millisecond,
			}, &watch.FileChunker{
				Parse:   a.parseOptions(),
				Chunker: ch,
				OutDir:  outDir,
				Format:  f,
			}, a.log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d directory(ies), press Ctrl+C to stop\n", len(args))
			if err := w.Start(ctx); err != nil && err != context.Canceled {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Processed %d file event(s)\n", len(w.Events()))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch directories recursively")
	cmd.Flags().StringVarP(&format, "format", "f", string(export.JSON), "Output format: json | jsonl | csv | yaml | xlsx")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to save chunk sets into (default: next to the source)")
	cmd.Flags().IntVar(&debounce, "debounce", int(watch.DefaultDebounce/time.Millisecond), "Debounce interval in milliseconds")

	return cmd
}
