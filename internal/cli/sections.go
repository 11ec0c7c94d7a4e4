package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/parser"
)

func (a *app) newSectionsCommand() *cobra.Command {
	var markdown bool

	cmd := &cobra.Command{
		Use:   "sections <file>",
		Short: "Print the section tree of a document",
		Long: `Parses a document into its heading tree and prints one line per section,
indented by depth, with the word count of the section's own text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, nil); err != nil {
				return err
			}
			doc, err := parser.ParseFile(args[0], a.parseOptions())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if a.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			if markdown {
				fmt.Fprint(out, doc.Text())
				return nil
			}

			heading := color.New(color.Bold, color.FgCyan)
			dim := color.New(color.Faint)
			for i := range doc.Sections {
				sec := &doc.Sections[i]
				indent := strings.Repeat("  ", sec.Level-1)
				heading.Fprintf(out, "%s%s %s", indent, strings.Repeat("#", sec.Level), sec.Heading)
				dim.Fprintf(out, " (%d words)\n", len(strings.Fields(sec.Text)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the markdown reconstruction instead of the tree")

	return cmd
}
