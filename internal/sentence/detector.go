package sentence

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuleDetector is a rule-based BoundaryDetector. A boundary follows a run of
// terminal punctuation plus any closing quotes or brackets when the run is
// followed by whitespace and the next word does not start lowercase. A
// single period after a known abbreviation or a one-letter initial is not a
// boundary.
type RuleDetector struct {
	model *Model
}

func NewRuleDetector(m *Model) *RuleDetector {
	return &RuleDetector{model: m}
}

func isTerminal(r rune) bool {
	return r == '.' || r == '?' || r == '!' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', '»', '«', ')', ']', '}':
		return true
	}
	return false
}

const openers = "([{\"'«»“‘"

// Detect returns the sentence spans of text in order. Spans never include
// surrounding whitespace.
func (d *RuleDetector) Detect(text string) []Span {
	var spans []Span
	start := -1

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if start < 0 {
			if unicode.IsSpace(r) {
				i += size
				continue
			}
			start = i
		}
		if !isTerminal(r) {
			i += size
			continue
		}

		termStart := i
		j, n := i, 0
		for j < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[j:])
			if !isTerminal(r2) {
				break
			}
			j += s2
			n++
		}
		for j < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[j:])
			if !isCloser(r2) {
				break
			}
			j += s2
		}
		end := j

		if j < len(text) {
			if r2, _ := utf8.DecodeRuneInString(text[j:]); !unicode.IsSpace(r2) {
				i = j
				continue
			}
		}
		k := j
		for k < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[k:])
			if !unicode.IsSpace(r2) {
				break
			}
			k += s2
		}
		if k < len(text) {
			next, _ := utf8.DecodeRuneInString(text[k:])
			if unicode.IsLower(next) {
				i = k
				continue
			}
			if n == 1 && text[termStart] == '.' && d.suppressed(text[start:termStart]) {
				i = k
				continue
			}
		}

		spans = append(spans, Span{Start: start, End: end})
		start = -1
		i = k
	}

	if start >= 0 {
		end := len(strings.TrimRightFunc(text, unicode.IsSpace))
		if end > start {
			spans = append(spans, Span{Start: start, End: end})
		}
	}
	return spans
}

// suppressed reports whether the word right before a period makes the
// period part of the word.
func (d *RuleDetector) suppressed(prefix string) bool {
	fields := strings.Fields(prefix)
	if len(fields) == 0 {
		return false
	}
	word := strings.TrimLeft(fields[len(fields)-1], openers)
	if word == "" {
		return false
	}
	if r, size := utf8.DecodeRuneInString(word); size == len(word) && unicode.IsLetter(r) {
		return true
	}
	return d.model != nil && d.model.IsAbbreviation(word)
}
