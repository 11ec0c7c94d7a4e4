package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/docsplit/internal/chunker"
	"github.com/dgallion1/docsplit/internal/doctree"
	"github.com/dgallion1/docsplit/internal/export"
	"github.com/dgallion1/docsplit/internal/parser"
)

// maxChunkBody bounds the JSON body of POST /api/chunk.
const maxChunkBody = 8 << 20

type chunkRequest struct {
	Text         string `json:"text"`
	Method       string `json:"method,omitempty"`
	MaxChunkSize *int   `json:"max_chunk_size,omitempty"`
	Overlap      *int   `json:"overlap,omitempty"`
}

// handleChunk parses markdown text and returns its chunk set without
// storing anything.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChunkBody)
	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg := chunkConfig(s.orchestrator.ChunkingDefaults(), req.Method, req.MaxChunkSize, req.Overlap)
	_, set, err := s.orchestrator.Chunk(req.Text, cfg)
	if err != nil {
		writeChunkError(w, err)
		return
	}
	s.writeChunkSet(w, r, set)
}

// chunkConfig applies request overrides to the configured defaults.
func chunkConfig(base chunker.Config, method string, size, overlap *int) chunker.Config {
	cfg := base
	if method != "" {
		cfg.Method = doctree.ChunkingMethod(strings.ToLower(method))
	}
	if size != nil {
		cfg.MaxChunkSize = *size
	}
	if overlap != nil {
		cfg.Overlap = *overlap
	}
	return cfg
}

// writeChunkError maps parse and configuration failures to client errors.
func writeChunkError(w http.ResponseWriter, err error) {
	var serr *parser.StructureError
	switch {
	case errors.As(err, &serr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": serr.Error(),
			"kind":  serr.Kind.String(),
			"line":  serr.Line,
		})
	case errors.Is(err, chunker.ErrConfiguration):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

var contentTypes = map[export.Format]string{
	export.JSON:  "application/json",
	export.JSONL: "application/x-ndjson",
	export.CSV:   "text/csv; charset=utf-8",
	export.YAML:  "application/yaml",
	export.XLSX:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// writeChunkSet encodes set in the format named by the "format" query
// parameter, JSON by default.
func (s *Server) writeChunkSet(w http.ResponseWriter, r *http.Request, set *doctree.ChunkSet) {
	format := export.JSON
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		format = f
	}
	w.Header().Set("Content-Type", contentTypes[format])
	if err := export.WriteChunkSet(w, set, format); err != nil {
		s.log.Error("write chunk set failed", "format", string(format), "error", err)
	}
}
