package api

import (
	"net/http"
)

func (s *Server) handleEmbedStats(w http.ResponseWriter, r *http.Request) {
	if s.embedStats == nil {
		jsonError(w, "embedding stats unavailable for index kind "+s.cfg.Index.Kind, http.StatusServiceUnavailable)
		return
	}

	model := "hash"
	if s.cfg.OpenAI.APIKey != "" {
		model = s.cfg.OpenAI.Model
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"index_kind": s.cfg.Index.Kind,
		"model":      model,
		"stats":      s.embedStats.Snapshot(),
	})
}
