package parser

import (
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// outline accumulates heading-annotated markdown from a converted document.
// Heading depths from the source format are clamped so that each heading is
// at most one level below the previous one, and body text that appears before
// any heading is placed under a level-1 heading named after the document.
type outline struct {
	title  string
	blocks []string
	depth  int
}

func newOutline(title string) *outline {
	if title == "" {
		title = "Untitled"
	}
	return &outline{title: title}
}

func (o *outline) heading(level int, text string) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return
	}
	if level < 1 {
		level = 1
	}
	if level > o.depth+1 {
		level = o.depth + 1
	}
	o.depth = level
	o.blocks = append(o.blocks, strings.Repeat(string(doctree.HeadingMarker), level)+" "+text)
}

func (o *outline) para(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if o.depth == 0 {
		o.heading(1, o.title)
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if IsHeadingLine(l) {
			lines[i] = `\` + l
		}
	}
	o.blocks = append(o.blocks, strings.Join(lines, "\n"))
}

func (o *outline) String() string {
	if len(o.blocks) == 0 {
		return ""
	}
	return strings.Join(o.blocks, "\n\n") + "\n"
}

func (o *outline) document() (*doctree.Document, error) {
	return ParseSections(o.String())
}

// titleFromFilename strips directory and extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
