package chunker

import (
	"strconv"

	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/sentence"
)

// Config controls chunking behavior.
type Config struct {
	Method       doctree.ChunkingMethod
	MaxChunkSize int // word budget per chunk (naive: window size)
	Overlap      int // words shared by consecutive windows, naive only
}

// DefaultConfig returns the defaults used by the CLI and service.
func DefaultConfig() Config {
	return Config{
		Method:       doctree.MethodParagraph,
		MaxChunkSize: 128,
		Overlap:      50,
	}
}

// Validate reports the first unusable parameter as a *ConfigurationError.
func (c Config) Validate() error {
	if _, err := doctree.ParseChunkingMethod(string(c.Method)); err != nil {
		return &ConfigurationError{Field: "method", Reason: err.Error()}
	}
	if c.MaxChunkSize <= 0 {
		return &ConfigurationError{Field: "max_chunk_size", Reason: "must be positive"}
	}
	if c.Method == doctree.MethodNaive {
		if c.Overlap < 0 {
			return &ConfigurationError{Field: "overlap", Reason: "must not be negative"}
		}
		if c.Overlap >= c.MaxChunkSize {
			return &ConfigurationError{Field: "overlap", Reason: "must be smaller than max_chunk_size"}
		}
	}
	return nil
}

// TextSplitter cuts a body of text into chunk texts.
type TextSplitter interface {
	Split(text string) []string
}

// Chunker is a configured TextSplitter that knows which method it runs.
type Chunker struct {
	TextSplitter
	Method doctree.ChunkingMethod
}

// New validates cfg and builds the matching splitter. The paragraph method
// needs a sentence model; the naive method ignores it.
func New(cfg Config, model *sentence.Model) (*Chunker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case doctree.MethodNaive:
		w, err := NewTokenWindowSplitter(cfg.MaxChunkSize, cfg.Overlap)
		if err != nil {
			return nil, err
		}
		return &Chunker{TextSplitter: w, Method: cfg.Method}, nil
	default:
		if model == nil {
			return nil, &ConfigurationError{Field: "language", Reason: "model is required for paragraph chunking"}
		}
		p, err := NewParagraphSplitter(sentence.NewSplitter(model), cfg.MaxChunkSize)
		if err != nil {
			return nil, err
		}
		return &Chunker{TextSplitter: p, Method: cfg.Method}, nil
	}
}

// Chunk runs ChunkDocument with the chunker's own splitter and method.
func (c *Chunker) Chunk(doc *doctree.Document) *doctree.ChunkSet {
	return ChunkDocument(doc, c.TextSplitter, c.Method)
}

// ChunkDocument splits each section's own body text in document order. A
// chunk never spans two sections and sections without body text produce
// none. Chunk IDs are derived from the section ID, the chunk's position in
// its section and its text.
func ChunkDocument(doc *doctree.Document, s TextSplitter, method doctree.ChunkingMethod) *doctree.ChunkSet {
	set := &doctree.ChunkSet{Method: method, Chunks: []doctree.Chunk{}}
	for i := range doc.Sections {
		sec := &doc.Sections[i]
		for n, text := range s.Split(sec.Text) {
			set.Chunks = append(set.Chunks, doctree.Chunk{
				ID:        doctree.GenerateID([]string{sec.ID, strconv.Itoa(n), text}),
				SectionID: sec.ID,
				Text:      text,
			})
		}
	}
	return set
}
