package chunker

import (
	"strings"
	"unicode/utf8"
)

// TokenWindowSplitter emits fixed-size windows of words, each window
// starting size-overlap words after the previous one.
type TokenWindowSplitter struct {
	size    int
	overlap int
}

func NewTokenWindowSplitter(size, overlap int) (*TokenWindowSplitter, error) {
	if size <= 0 {
		return nil, &ConfigurationError{Field: "max_chunk_size", Reason: "must be positive"}
	}
	if overlap < 0 {
		return nil, &ConfigurationError{Field: "overlap", Reason: "must not be negative"}
	}
	if overlap >= size {
		return nil, &ConfigurationError{Field: "overlap", Reason: "must be smaller than max_chunk_size"}
	}
	return &TokenWindowSplitter{size: size, overlap: overlap}, nil
}

// Split returns the windows of text joined by single spaces. The window
// that reaches the end of the text is the last one; a final window shorter
// than two characters is dropped.
func (w *TokenWindowSplitter) Split(text string) []string {
	tokens := strings.Fields(text)
	var out []string
	for start := 0; start < len(tokens); start += w.size - w.overlap {
		end := min(start+w.size, len(tokens))
		chunk := strings.Join(tokens[start:end], " ")
		if utf8.RuneCountInString(chunk) < 2 {
			break
		}
		out = append(out, chunk)
		if end == len(tokens) {
			break
		}
	}
	return out
}
