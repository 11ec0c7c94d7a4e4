package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// TextParser handles plain text files. The file has no headings of its own,
// so its paragraphs become the body of one section named after the file.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	o := newOutline(titleFromFilename(filename))
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				o.para(current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if current.Len() > 0 {
		o.para(current.String())
	}

	return o.document()
}
