package parser

import (
	"io"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// MarkdownParser handles Markdown files. By default the input must already
// use single-line "#" headings; with Normalize set it is first rewritten by
// NormalizeMarkdown so setext headings and the like are accepted.
type MarkdownParser struct {
	Normalize bool
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if p.Normalize {
		return ParseSections(NormalizeMarkdown(src))
	}
	return ParseSections(string(src))
}
