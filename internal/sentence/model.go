package sentence

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

//go:embed data/*.txt
var dataFS embed.FS

var languageTags = map[string]language.Tag{
	"danish":  language.Danish,
	"english": language.English,
}

// Languages returns the names LoadModel accepts.
func Languages() []string {
	names := make([]string, 0, len(languageTags))
	for name := range languageTags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Model is the language resource a RuleDetector and its Casing work from.
// It is never mutated after LoadModel returns and may be shared by any
// number of splitters across goroutines.
type Model struct {
	Name string
	Tag  language.Tag

	abbreviations map[string]bool
}

// LoadModel reads the embedded abbreviation list for the named language.
func LoadModel(name string) (*Model, error) {
	tag, ok := languageTags[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q (have %s)", name, strings.Join(Languages(), ", "))
	}
	raw, err := dataFS.ReadFile("data/" + strings.ToLower(name) + ".txt")
	if err != nil {
		return nil, fmt.Errorf("read %s abbreviations: %w", name, err)
	}

	m := &Model{Name: strings.ToLower(name), Tag: tag, abbreviations: make(map[string]bool)}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.abbreviations[strings.TrimSuffix(strings.ToLower(line), ".")] = true
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s abbreviations: %w", name, err)
	}
	return m, nil
}

// IsAbbreviation reports whether word, with or without its final period,
// is a known abbreviation. Matching is case-insensitive.
func (m *Model) IsAbbreviation(word string) bool {
	return m.abbreviations[strings.TrimSuffix(strings.ToLower(word), ".")]
}

// Casing returns the capitalisation predicate for the model's language.
func (m *Model) Casing() Casing {
	return NewTitleCasing(m.Tag)
}
