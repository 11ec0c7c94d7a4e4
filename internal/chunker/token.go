package chunker

import "strings"

// CountWords is the size measure for every chunk budget: the number of
// whitespace-delimited words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
