package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/docsplit/internal/llm"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

// defaultTopK is used when a search request does not set k.
const defaultTopK = 5

type searchRequest struct {
	DocID string `json:"doc_id"`
	Query string `json:"query"`
	K     int    `json:"k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocID == "" || strings.TrimSpace(req.Query) == "" {
		jsonError(w, "doc_id and query are required", http.StatusBadRequest)
		return
	}
	if req.K <= 0 {
		req.K = defaultTopK
	}

	res, err := s.orchestrator.Search(r.Context(), req.DocID, req.Query, req.K)
	if errors.Is(err, pipeline.ErrDocumentNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("search failed", "doc_id", req.DocID, "error", err)
		jsonError(w, "search failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocID == "" || strings.TrimSpace(req.Query) == "" {
		jsonError(w, "doc_id and query are required", http.StatusBadRequest)
		return
	}
	if req.K <= 0 {
		req.K = defaultTopK
	}

	ans, err := s.orchestrator.Answer(r.Context(), req.DocID, req.Query, req.K)
	switch {
	case errors.Is(err, pipeline.ErrNoChat):
		jsonError(w, "answer generation is not configured", http.StatusServiceUnavailable)
	case errors.Is(err, pipeline.ErrDocumentNotFound):
		jsonError(w, "document not found", http.StatusNotFound)
	case errors.Is(err, llm.ErrNoContext):
		jsonError(w, "no chunks matched the query", http.StatusUnprocessableEntity)
	case err != nil:
		s.log.Error("answer failed", "doc_id", req.DocID, "error", err)
		jsonError(w, "answer failed: "+err.Error(), http.StatusBadGateway)
	default:
		writeJSON(w, http.StatusOK, ans)
	}
}
