package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// headingLine matches a run of markers followed by whitespace. Depth is the
// length of the leading run.
var headingLine = regexp.MustCompile(`^(#+)[ \t]`)

// ParseSections builds a section tree from heading-annotated text.
//
// The first non-blank line must be a level-1 heading and a heading may be at
// most one level deeper than the section before it. Violations are returned
// as *StructureError. Body text is everything between two headings with
// leading blank lines and trailing whitespace removed. Empty input yields an
// empty document.
func ParseSections(text string) (*doctree.Document, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	doc := &doctree.Document{}
	if strings.TrimSpace(text) == "" {
		return doc, nil
	}

	current := doctree.NoParent
	var body []string

	closeSection := func() {
		if current != doctree.NoParent {
			doc.Sections[current].Text = sectionBody(body)
		}
		body = body[:0]
	}

	for n, line := range strings.Split(text, "\n") {
		m := headingLine.FindStringSubmatch(line)
		if m == nil {
			if current == doctree.NoParent {
				if strings.TrimSpace(line) == "" {
					continue
				}
				return nil, &StructureError{Kind: MissingLeadingHeading, Line: n + 1, Heading: line}
			}
			body = append(body, line)
			continue
		}

		level := len(m[1])
		heading := strings.TrimSpace(line[len(m[0]):])

		if current == doctree.NoParent {
			if level != 1 {
				return nil, &StructureError{Kind: InvalidRootDepth, Line: n + 1, Heading: heading, Level: level, Want: 1}
			}
		} else if want := doc.Sections[current].Level + 1; level > want {
			return nil, &StructureError{Kind: IllegalDepthJump, Line: n + 1, Heading: heading, Level: level, Want: want}
		}

		closeSection()

		parent := current
		for parent != doctree.NoParent && doc.Sections[parent].Level >= level {
			parent = doc.Sections[parent].Parent
		}
		idx, err := doc.Append(level, heading, "", parent)
		if err != nil {
			return nil, err
		}
		current = idx
	}
	closeSection()

	return doc, nil
}

func sectionBody(lines []string) string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	return strings.TrimRightFunc(strings.Join(lines, "\n"), unicode.IsSpace)
}

// IsHeadingLine reports whether line would open a section.
func IsHeadingLine(line string) bool {
	return headingLine.MatchString(line)
}
