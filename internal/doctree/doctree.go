// Package doctree holds the section tree produced by the parser and the chunk
// sets produced by the chunker.
//
// Sections live in an arena owned by the Document: parents and children refer
// to each other by index, so the tree has no ownership cycles and both
// directions of navigation are O(1).
package doctree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// NoParent is the parent index of a top-level section.
const NoParent = -1

// HeadingMarker is the character whose leading run encodes a heading's depth.
const HeadingMarker = '#'

// Section is a heading-delimited unit of a document.
type Section struct {
	ID       string
	Level    int    // 1 = top level
	Heading  string // heading text without markers
	Text     string // body text, may be empty
	Parent   int    // arena index of the parent, NoParent for top-level sections
	Children []int  // arena indices in document order
}

// IsRoot reports whether the section is a top-level section.
func (s *Section) IsRoot() bool {
	return s.Parent == NoParent
}

// Document is a parsed document: the flat, document-ordered section list is
// the arena, and parent/child indices describe the tree over it.
type Document struct {
	Sections []Section
}

// Len returns the number of sections.
func (d *Document) Len() int {
	return len(d.Sections)
}

// Section returns the section at arena index i.
func (d *Document) Section(i int) *Section {
	return &d.Sections[i]
}

// Parent returns the parent of section i, or nil for a top-level section.
func (d *Document) Parent(i int) *Section {
	p := d.Sections[i].Parent
	if p == NoParent {
		return nil
	}
	return &d.Sections[p]
}

// Children returns the children of section i in document order.
func (d *Document) Children(i int) []*Section {
	idx := d.Sections[i].Children
	if len(idx) == 0 {
		return nil
	}
	out := make([]*Section, len(idx))
	for n, c := range idx {
		out[n] = &d.Sections[c]
	}
	return out
}

// Roots returns the arena indices of the top-level sections.
func (d *Document) Roots() []int {
	var roots []int
	for i := range d.Sections {
		if d.Sections[i].Parent == NoParent {
			roots = append(roots, i)
		}
	}
	return roots
}

// Lookup returns the arena index of the section with the given ID.
func (d *Document) Lookup(id string) (int, bool) {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return i, true
		}
	}
	return 0, false
}

// Breadcrumb returns the headings from the root down to section i.
func (d *Document) Breadcrumb(i int) []string {
	var path []string
	for n := i; n != NoParent; n = d.Sections[n].Parent {
		path = append(path, d.Sections[n].Heading)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// Append registers a new section under parent (NoParent for a top-level
// section) and returns its arena index. The level must be 1 for top-level
// sections and the parent's level plus one otherwise. The section ID is
// derived from the ancestor headings and the section's own heading; a heading
// repeated among siblings carries its occurrence number so every ID in the
// document is distinct.
func (d *Document) Append(level int, heading, text string, parent int) (int, error) {
	if parent == NoParent {
		if level != 1 {
			return 0, fmt.Errorf("top-level section %q must be level 1, got %d", heading, level)
		}
	} else {
		if parent < 0 || parent >= len(d.Sections) {
			return 0, fmt.Errorf("section %q: parent index %d out of range", heading, parent)
		}
		if want := d.Sections[parent].Level + 1; level != want {
			return 0, fmt.Errorf("section %q must be level %d, got %d", heading, want, level)
		}
	}

	var parts []string
	if parent != NoParent {
		parts = d.idParts(parent)
	}
	parts = append(parts, idPart(heading, d.occurrences(parent, heading, len(d.Sections))))

	idx := len(d.Sections)
	d.Sections = append(d.Sections, Section{
		ID:      GenerateID(parts),
		Level:   level,
		Heading: heading,
		Text:    text,
		Parent:  parent,
	})
	if parent != NoParent {
		d.Sections[parent].Children = append(d.Sections[parent].Children, idx)
	}
	return idx, nil
}

// HeadingLine renders the heading of section i with its depth markers.
func (d *Document) HeadingLine(i int) string {
	s := &d.Sections[i]
	return strings.Repeat(string(HeadingMarker), s.Level) + " " + s.Heading
}

// EntireText reconstructs section i and its whole subtree: the heading line,
// a blank line and the body when the body is non-empty, then each child's
// reconstruction separated by a blank line.
func (d *Document) EntireText(i int) string {
	var sb strings.Builder
	d.writeSubtree(&sb, i)
	return sb.String()
}

func (d *Document) writeSubtree(sb *strings.Builder, i int) {
	s := &d.Sections[i]
	sb.WriteString(d.HeadingLine(i))
	sb.WriteByte('\n')
	if s.Text != "" {
		sb.WriteByte('\n')
		sb.WriteString(s.Text)
		sb.WriteByte('\n')
	}
	for _, c := range s.Children {
		sb.WriteByte('\n')
		d.writeSubtree(sb, c)
	}
}

// Text reconstructs the whole document from its top-level sections.
func (d *Document) Text() string {
	var sb strings.Builder
	for n, r := range d.Roots() {
		if n > 0 {
			sb.WriteByte('\n')
		}
		d.writeSubtree(&sb, r)
	}
	return sb.String()
}

// occurrences counts the siblings under parent that come before arena index
// end and share heading.
func (d *Document) occurrences(parent int, heading string, end int) int {
	siblings := d.Roots()
	if parent != NoParent {
		siblings = d.Sections[parent].Children
	}
	n := 0
	for _, j := range siblings {
		if j < end && d.Sections[j].Heading == heading {
			n++
		}
	}
	return n
}

// idParts returns the ID parts of section i, root first.
func (d *Document) idParts(i int) []string {
	var parts []string
	for n := i; n != NoParent; n = d.Sections[n].Parent {
		s := &d.Sections[n]
		parts = append(parts, idPart(s.Heading, d.occurrences(s.Parent, s.Heading, n)))
	}
	slices.Reverse(parts)
	return parts
}

// idPart is the escaped heading for its first occurrence among its siblings.
// Later occurrences append 0x01 0x03 and the occurrence number, a sequence no
// escaped heading contains.
func idPart(heading string, occurrence int) string {
	h := partEscaper.Replace(heading)
	if occurrence == 0 {
		return h
	}
	return h + "\x01\x03" + strconv.Itoa(occurrence)
}
