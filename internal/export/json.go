package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dgallion1/docsplit/internal/doctree"
)

func writeJSON(w io.Writer, set *doctree.ChunkSet) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(set)
}

func readJSON(r io.Reader) (*doctree.ChunkSet, error) {
	var set doctree.ChunkSet
	if err := json.NewDecoder(r).Decode(&set); err != nil {
		return nil, err
	}
	return &set, nil
}

// jsonlHeader is the first line of a JSONL chunk set.
type jsonlHeader struct {
	Method doctree.ChunkingMethod `json:"chunking_method"`
	Chunks int                    `json:"chunks"`
}

func writeJSONL(w io.Writer, set *doctree.ChunkSet) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if err := enc.Encode(jsonlHeader{Method: set.Method, Chunks: len(set.Chunks)}); err != nil {
		return err
	}
	for _, c := range set.Chunks {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readJSONL(r io.Reader) (*doctree.ChunkSet, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing header line")
	}
	var hdr jsonlHeader
	if err := json.Unmarshal(sc.Bytes(), &hdr); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	set := &doctree.ChunkSet{Method: hdr.Method, Chunks: make([]doctree.Chunk, 0, hdr.Chunks)}
	line := 1
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var c doctree.Chunk
		if err := json.Unmarshal(sc.Bytes(), &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		set.Chunks = append(set.Chunks, c)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(set.Chunks) != hdr.Chunks {
		return nil, fmt.Errorf("header announces %d chunks, found %d", hdr.Chunks, len(set.Chunks))
	}
	return set, nil
}

// WriteDocument encodes a section tree as indented JSON.
func WriteDocument(w io.Writer, doc *doctree.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ReadDocument decodes a section tree written by WriteDocument.
func ReadDocument(r io.Reader) (*doctree.Document, error) {
	var doc doctree.Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return &doc, nil
}

// SaveDocument writes a section tree to path as JSON.
func SaveDocument(path string, doc *doctree.Document) error {
	return writeFile(path, func(w io.Writer) error { return WriteDocument(w, doc) })
}

// LoadDocument reads a section tree from a JSON file.
func LoadDocument(path string) (*doctree.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadDocument(f)
}
