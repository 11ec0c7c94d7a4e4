// Package export persists chunk sets and section trees.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsplit/internal/doctree"
)

// Format is a chunk set serialization.
type Format string

const (
	JSON  Format = "json"
	JSONL Format = "jsonl"
	CSV   Format = "csv"
	YAML  Format = "yaml"
	XLSX  Format = "xlsx"
)

// Formats lists every supported format.
var Formats = []Format{JSON, JSONL, CSV, YAML, XLSX}

// ParseFormat accepts a format name, case-insensitively. "yml" is YAML.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(s, "."))
	if s == "yml" {
		return YAML, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// OutputPath names the chunk set file for source inside dir:
// "<dir>/<name>.chunks.<format>".
func OutputPath(dir, source string, f Format) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+".chunks."+string(f))
}

// columns is the row layout shared by CSV and XLSX.
var columns = []string{"chunking_method", "id", "section_id", "text"}

// WriteChunkSet encodes set to w in format f.
func WriteChunkSet(w io.Writer, set *doctree.ChunkSet, f Format) error {
	switch f {
	case JSON:
		return writeJSON(w, set)
	case JSONL:
		return writeJSONL(w, set)
	case CSV:
		return writeCSV(w, set)
	case YAML:
		return writeYAML(w, set)
	case XLSX:
		return writeXLSX(w, set)
	}
	return fmt.Errorf("unknown format %q", f)
}

// ReadChunkSet decodes a chunk set written by WriteChunkSet in format f.
func ReadChunkSet(r io.Reader, f Format) (*doctree.ChunkSet, error) {
	var (
		set *doctree.ChunkSet
		err error
	)
	switch f {
	case JSON:
		set, err = readJSON(r)
	case JSONL:
		set, err = readJSONL(r)
	case CSV:
		set, err = readCSV(r)
	case YAML:
		set, err = readYAML(r)
	case XLSX:
		set, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s chunk set: %w", f, err)
	}
	if set.Chunks == nil {
		set.Chunks = []doctree.Chunk{}
	}
	return set, nil
}

// SaveChunkSet writes set to path in the format its extension names.
func SaveChunkSet(path string, set *doctree.ChunkSet) error {
	f, err := FormatForPath(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error { return WriteChunkSet(w, set, f) })
}

// LoadChunkSet reads a chunk set from path in the format its extension names.
func LoadChunkSet(path string) (*doctree.ChunkSet, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadChunkSet(file, f)
}

// writeFile writes through a temp file and renames it into place so readers
// never see a partial file.
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
