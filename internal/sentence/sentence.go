// Package sentence splits text into sentences. A BoundaryDetector proposes
// raw boundaries and a Splitter repairs the mistakes detectors typically
// make on scraped and markdown text.
package sentence

import (
	"regexp"
	"strings"
)

// Span is a half-open byte range [Start, End) of a sentence in the text
// handed to a BoundaryDetector.
type Span struct {
	Start int
	End   int
}

// BoundaryDetector locates raw sentence boundaries. Implementations must be
// safe for concurrent use.
type BoundaryDetector interface {
	Detect(text string) []Span
}

var (
	periodRun = regexp.MustCompile(`\.{2,}`)
	listStart = regexp.MustCompile(`^\d+\.$`)
)

// Splitter turns text into sentences. It holds only read-only collaborators
// and is safe for concurrent use.
type Splitter struct {
	detector BoundaryDetector
	casing   Casing
}

// NewSplitter builds a splitter backed by the rule-based detector and the
// casing rules of m.
func NewSplitter(m *Model) *Splitter {
	return &Splitter{detector: NewRuleDetector(m), casing: m.Casing()}
}

// NewSplitterWith builds a splitter from explicit collaborators.
func NewSplitterWith(d BoundaryDetector, c Casing) *Splitter {
	return &Splitter{detector: d, casing: c}
}

// Split returns the sentences of text, each trimmed. Empty or
// whitespace-only text yields no sentences.
//
// Runs of periods are collapsed before detection. Detected sentences that
// span line breaks are cut into one segment per non-blank line, segments
// that start lowercase are glued back onto their predecessor, and a bare
// ordinal such as "1." is joined to the segment that follows it.
func (s *Splitter) Split(text string) []string {
	text = periodRun.ReplaceAllString(text, ".")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var segs []string
	for _, sp := range s.detector.Detect(text) {
		segs = append(segs, splitLines(text[sp.Start:sp.End])...)
	}
	segs = s.mergeContinuations(segs)
	return mergeListStarts(segs)
}

func splitLines(seg string) []string {
	var out []string
	for _, line := range strings.Split(seg, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (s *Splitter) mergeContinuations(segs []string) []string {
	out := make([]string, 0, len(segs))
	for _, seg := range segs {
		if len(out) > 0 && s.casing.IsContinuation(seg) {
			out[len(out)-1] += " " + seg
			continue
		}
		out = append(out, seg)
	}
	return out
}

func mergeListStarts(segs []string) []string {
	out := make([]string, 0, len(segs))
	for i := 0; i < len(segs); i++ {
		if listStart.MatchString(segs[i]) && i+1 < len(segs) {
			out = append(out, segs[i]+" "+segs[i+1])
			i++
			continue
		}
		out = append(out, segs[i])
	}
	return out
}
