package doctree

import "fmt"

// ChunkingMethod tags how a chunk set was produced.
type ChunkingMethod string

const (
	// MethodNaive is the fixed-size token window with overlap.
	MethodNaive ChunkingMethod = "naive"
	// MethodParagraph is the sentence-bounded paragraph packer.
	MethodParagraph ChunkingMethod = "paragraph"
)

// ParseChunkingMethod validates a method name.
func ParseChunkingMethod(s string) (ChunkingMethod, error) {
	switch m := ChunkingMethod(s); m {
	case MethodNaive, MethodParagraph:
		return m, nil
	}
	return "", fmt.Errorf("unknown chunking method %q (want %q or %q)", s, MethodNaive, MethodParagraph)
}

// Chunk is a bounded unit of text belonging to exactly one section.
type Chunk struct {
	ID        string `json:"id" yaml:"id"`
	SectionID string `json:"section_id" yaml:"section_id"`
	Text      string `json:"text" yaml:"text"`
}

// ChunkSet is the ordered output of chunking one document with one
// configuration. Order is production order.
type ChunkSet struct {
	Method ChunkingMethod `json:"chunking_method" yaml:"chunking_method"`
	Chunks []Chunk        `json:"chunks" yaml:"chunks"`
}

// Len returns the number of chunks.
func (cs *ChunkSet) Len() int {
	return len(cs.Chunks)
}

// BySection groups chunk indices by owning section ID.
func (cs *ChunkSet) BySection() map[string][]int {
	out := make(map[string][]int)
	for i, c := range cs.Chunks {
		out[c.SectionID] = append(out[c.SectionID], i)
	}
	return out
}
