package chunker

import (
	"regexp"
	"strings"
)

// SentenceSplitter is what ParagraphSplitter needs from a sentence splitter.
type SentenceSplitter interface {
	Split(text string) []string
}

// whitespaceBreak matches a blank line that holds only whitespace.
var whitespaceBreak = regexp.MustCompile(`\n\s+\n`)

// ParagraphSplitter splits text into blank-line paragraphs and repacks any
// paragraph longer than the word budget into runs of whole sentences.
type ParagraphSplitter struct {
	sentences SentenceSplitter
	maxWords  int
}

func NewParagraphSplitter(sentences SentenceSplitter, maxWords int) (*ParagraphSplitter, error) {
	if maxWords <= 0 {
		return nil, &ConfigurationError{Field: "max_chunk_size", Reason: "must be positive"}
	}
	if sentences == nil {
		return nil, &ConfigurationError{Field: "sentence_splitter", Reason: "is required"}
	}
	return &ParagraphSplitter{sentences: sentences, maxWords: maxWords}, nil
}

// Split returns the bounded paragraphs of text in order. A paragraph within
// the budget is returned unchanged, inner line breaks included. A longer one
// is split into sentences that are packed greedily; a single sentence over
// the budget is emitted whole.
func (p *ParagraphSplitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	text = whitespaceBreak.ReplaceAllString(text, "\n\n")

	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if CountWords(para) <= p.maxWords {
			out = append(out, para)
			continue
		}
		out = append(out, p.pack(p.sentences.Split(para))...)
	}
	return out
}

func (p *ParagraphSplitter) pack(sentences []string) []string {
	var (
		out   []string
		acc   []string
		words int
	)
	flush := func() {
		if len(acc) > 0 {
			out = append(out, strings.Join(acc, " "))
			acc = acc[:0]
			words = 0
		}
	}
	for _, s := range sentences {
		n := CountWords(s)
		if words+n > p.maxWords && len(acc) > 0 {
			flush()
		}
		acc = append(acc, s)
		words += n
	}
	flush()
	return out
}
