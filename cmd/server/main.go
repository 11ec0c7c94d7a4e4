package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docsplit/internal/api"
	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/embed"
	"github.com/dgallion1/docsplit/internal/pathstore"
	"github.com/dgallion1/docsplit/internal/pipeline"
	"github.com/dgallion1/docsplit/internal/sentence"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(os.Getenv("DOCSPLIT_CONFIG"))
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	model, err := sentence.LoadModel(cfg.Language)
	if err != nil {
		log.Error("load sentence model", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Embedding stats only exist for vector indexes.
	var stats *embed.Stats
	if cfg.Index.Kind == config.IndexVector {
		stats = embed.NewStats(time.Hour)
	}

	var (
		ps    *pathstore.Client
		store *pathstore.DocumentStore
	)
	if cfg.Pathstore.URL != "" {
		ps = pathstore.NewClient(cfg.Pathstore.URL, cfg.Pathstore.APIKey)
		store = pathstore.NewDocumentStore(ps, cfg.Pathstore.Prefix)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, model, pipeline.IndexFactory(cfg, stats), store, log)
	chat, err := pipeline.NewChat(cfg)
	if err != nil {
		log.Error("configure answer generation", "error", err)
		os.Exit(1)
	}
	if chat != nil {
		orch.SetChat(chat)
	}
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting docsplit",
		"port", cfg.Port,
		"index", cfg.Index.Kind,
		"language", cfg.Language,
		"chunking", cfg.Chunk.Method,
		"pathstore", cfg.Pathstore.URL != "",
		"llm", cfg.LLM.Provider,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
