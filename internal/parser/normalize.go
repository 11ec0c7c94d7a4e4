package parser

import (
	"bytes"
	"sort"
	"strings"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// NormalizeMarkdown rewrites CommonMark headings into the single-line form
// ParseSections expects. Setext headings become ATX headings, closing marker
// sequences and inline markup are dropped from heading text, and lines that
// look like headings but are not (for example inside fenced code) are
// escaped with a backslash. Heading depths are left untouched.
func NormalizeMarkdown(src []byte) string {
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	lines := strings.Split(string(src), "\n")
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l) + 1
	}
	lineOf := func(pos int) int {
		return sort.Search(len(starts), func(i int) bool { return starts[i] > pos }) - 1
	}

	replace := make(map[int]string)
	drop := make(map[int]bool)
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		segs := h.Lines()
		first := lineOf(segs.At(0).Start)
		last := lineOf(segs.At(segs.Len() - 1).Start)
		title := strings.Join(strings.Fields(string(h.Text(src))), " ")

		replace[first] = strings.Repeat(string(doctree.HeadingMarker), h.Level) + " " + title
		for i := first + 1; i <= last; i++ {
			drop[i] = true
		}
		if !strings.HasPrefix(strings.TrimLeft(lines[first], " "), string(doctree.HeadingMarker)) && last+1 < len(lines) {
			drop[last+1] = true // setext underline
		}
	}

	out := make([]string, 0, len(lines))
	for i, l := range lines {
		switch {
		case drop[i]:
		case replace[i] != "":
			out = append(out, replace[i])
		case IsHeadingLine(l):
			out = append(out, `\`+l)
		default:
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
