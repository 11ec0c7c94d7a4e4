package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/embed"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docsplit.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	embedStats   *embed.Stats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. embedStats may be nil
// when the index does not call an embedding provider.
func NewServer(orch *pipeline.Orchestrator, embedStats *embed.Stats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		embedStats:   embedStats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/chunk", s.handleChunk)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}/chunks", s.handleDocumentChunks)
		r.Get("/api/documents/{docID}/sections", s.handleDocumentSections)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Post("/api/search", s.handleSearch)
		r.Post("/api/answer", s.handleAnswer)
		r.Get("/api/stats/embed", s.handleEmbedStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
