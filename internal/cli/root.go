// Package cli implements the docsplit command line tool.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/parser"
	"github.com/dgallion1/docsplit/internal/sentence"
)

// Version is set at build time via ldflags.
var Version = "dev"

// app holds the global flags and the state derived from them. Commands call
// setup before touching cfg, model or log.
type app struct {
	configPath string
	verbose    bool
	noColor    bool
	jsonOutput bool

	cfg   config.Config
	model *sentence.Model
	log   *slog.Logger
}

// NewRootCommand creates the root command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "docsplit",
		Short: "Split documents into sections and retrieval chunks",
		Long: `docsplit parses markdown, text, HTML, CSV, DOCX and PDF files into a
tree of heading sections and splits section text into chunks for retrieval.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config.yaml (default: $HOME/.docsplit/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable ANSI color output")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output as machine-readable JSON")

	rootCmd.AddCommand(a.newSectionsCommand())
	rootCmd.AddCommand(a.newChunkCommand())
	rootCmd.AddCommand(a.newSearchCommand())
	rootCmd.AddCommand(a.newAskCommand())
	rootCmd.AddCommand(a.newEvalCommand())
	rootCmd.AddCommand(a.newWatchCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// setup loads the configuration, applies chunking flag overrides and loads
// the sentence model for the configured language.
func (a *app) setup(cmd *cobra.Command, overrides *chunkFlags) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if overrides != nil {
		overrides.apply(cmd, &cfg)
	}
	if err := cfg.ValidateLocal(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	model, err := sentence.LoadModel(cfg.Language)
	if err != nil {
		return err
	}
	a.cfg, a.model = cfg, model
	a.log.Debug("configuration loaded",
		"language", cfg.Language,
		"method", cfg.Chunk.Method,
		"max_chunk_size", cfg.Chunk.MaxChunkSize,
		"overlap", cfg.Chunk.Overlap,
		"index", cfg.Index.Kind,
	)
	return nil
}

func (a *app) parseOptions() parser.Options {
	return parser.Options{
		NormalizeMarkdown: a.cfg.Parser.NormalizeMarkdown,
		PDFFallback:       a.cfg.Parser.PDFFallbackPdftotext,
	}
}

func (a *app) chunker() (*chunker.Chunker, error) {
	return chunker.New(a.cfg.Chunking(), a.model)
}

// parseAndChunk runs the parse and chunk phases on one file.
func (a *app) parseAndChunk(path string) (*doctree.Document, *doctree.ChunkSet, error) {
	ch, err := a.chunker()
	if err != nil {
		return nil, nil, err
	}
	doc, err := parser.ParseFile(path, a.parseOptions())
	if err != nil {
		return nil, nil, err
	}
	return doc, ch.Chunk(doc), nil
}

// chunkFlags are the per-command chunking overrides.
type chunkFlags struct {
	method  string
	maxSize int
	overlap int
}

func (f *chunkFlags) register(cmd *cobra.Command) {
	def := chunker.DefaultConfig()
	cmd.Flags().StringVar(&f.method, "method", string(def.Method), "Chunking method: paragraph | naive")
	cmd.Flags().IntVar(&f.maxSize, "max-size", def.MaxChunkSize, "Maximum words per chunk (naive: window size)")
	cmd.Flags().IntVar(&f.overlap, "overlap", def.Overlap, "Words shared by consecutive naive windows")
}

// apply copies the flags the user set over the loaded configuration.
func (f *chunkFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("method") {
		cfg.Chunk.Method = f.method
	}
	if cmd.Flags().Changed("max-size") {
		cfg.Chunk.MaxChunkSize = f.maxSize
	}
	if cmd.Flags().Changed("overlap") {
		cfg.Chunk.Overlap = f.overlap
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docsplit version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docsplit %s\n", Version)
		},
	}
}
