package sentence

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casing decides whether a detected segment is really the continuation of
// the sentence before it. Implementations are language specific.
type Casing interface {
	IsContinuation(segment string) bool
}

// TitleCasing treats a segment as a continuation when its first character
// changes under the language's title-case mapping, i.e. it starts lowercase.
// Digits, punctuation and characters without case never continue.
type TitleCasing struct {
	tag language.Tag
}

func NewTitleCasing(tag language.Tag) TitleCasing {
	return TitleCasing{tag: tag}
}

func (c TitleCasing) IsContinuation(segment string) bool {
	_, size := utf8.DecodeRuneInString(segment)
	if size == 0 {
		return false
	}
	first := segment[:size]
	// A Caser carries state, so each call gets its own.
	return cases.Title(c.tag).String(first) != first
}
