package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists documents in memory and, when configured, in
// the remote store.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"documents": s.orchestrator.Documents()}
	stored, err := s.orchestrator.StoredDocuments(r.Context())
	if err != nil {
		jsonError(w, "failed to list stored documents: "+err.Error(), http.StatusBadGateway)
		return
	}
	if stored != nil {
		resp["stored"] = stored
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) entry(w http.ResponseWriter, r *http.Request) (*pipeline.Entry, bool) {
	docID := chi.URLParam(r, "docID")
	e, err := s.orchestrator.Entry(r.Context(), docID)
	if errors.Is(err, pipeline.ErrDocumentNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusBadGateway)
		return nil, false
	}
	return e, true
}

// handleDocumentChunks returns the chunk set of a processed document.
func (s *Server) handleDocumentChunks(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	s.writeChunkSet(w, r, e.Chunks)
}

// handleDocumentSections returns the section tree of a processed document,
// or its markdown reconstruction with ?format=markdown.
func (s *Server) handleDocumentSections(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entry(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(e.Document.Text()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(e.Document)
}

// handleDeleteDocument removes a document from memory and the remote store.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	found, err := s.orchestrator.Delete(r.Context(), docID)
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if !found {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}
