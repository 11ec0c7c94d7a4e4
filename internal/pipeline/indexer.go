package pipeline

import (
	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/embed"
	"github.com/dgallion1/docsplit/internal/index"
)

// IndexFactory returns a constructor for the configured index kind. Vector
// indexes embed through OpenAI when a key is configured and through the local
// hash embedder otherwise. stats, when non-nil, records every embedding call.
func IndexFactory(cfg config.Config, stats *embed.Stats) func() index.Indexer {
	if cfg.Index.Kind != config.IndexVector {
		stop := index.StopWords(cfg.Language)
		return func() index.Indexer { return index.NewBM25(stop) }
	}

	var e embed.Embedder
	if cfg.OpenAI.APIKey != "" {
		e = embed.NewOpenAI(embed.OpenAIOptions{
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.OpenAI.Model,
			BaseURL:    cfg.OpenAI.BaseURL,
			Dimensions: cfg.Embed.Dimensions,
		})
	} else {
		e = embed.NewHash(cfg.Embed.Dimensions)
	}
	if stats != nil {
		e = embed.NewTimed(e, stats)
	}
	return func() index.Indexer { return index.NewVector(e) }
}
