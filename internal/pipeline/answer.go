package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/index"
	"github.com/dgallion1/docsplit/internal/llm"
)

// ErrNoChat is returned by Answer when no chat provider is configured.
var ErrNoChat = errors.New("answer generation is not configured")

// Answer is a generated reply together with the chunks it was grounded on.
type Answer struct {
	Query        string        `json:"query"`
	Answer       string        `json:"answer"`
	Chunks       []index.Match `json:"retrieved_chunks"`
	RetrievalMs  int64         `json:"retrieval_ms"`
	GenerationMs int64         `json:"generation_ms"`
}

// NewChat returns the configured chat provider, or nil when llm.provider is
// empty.
func NewChat(cfg config.Config) (llm.Chat, error) {
	switch cfg.LLM.Provider {
	case "":
		return nil, nil
	case config.ProviderOpenAI:
		if cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm.api_key (or OPENAI_API_KEY) is required for provider %q", cfg.LLM.Provider)
		}
		return llm.NewOpenAI(llm.OpenAIOptions{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
		}), nil
	case config.ProviderAnthropic:
		if cfg.LLM.APIKey == "" && cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm.api_key (or ANTHROPIC_API_KEY) is required for provider %q", cfg.LLM.Provider)
		}
		return llm.NewClaudeClient(llm.ClaudeOptions{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
		}), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
}

// Generate asks chat to answer res.Query from the matched chunks, retrying
// throttled or failed provider calls.
func Generate(ctx context.Context, chat llm.Chat, res *index.SearchResult, log *slog.Logger) (*Answer, error) {
	return generate(ctx, chat, res, jitteredBackoff, log)
}

func generate(ctx context.Context, chat llm.Chat, res *index.SearchResult, wait func(int) time.Duration, log *slog.Logger) (*Answer, error) {
	contexts := make([]string, len(res.Matches))
	for i, m := range res.Matches {
		contexts[i] = m.Text
	}
	messages, err := llm.BuildMessages(res.Query, contexts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var reply string
	err = retryTransient(ctx, wait, log.With("phase", "generation"), func() error {
		var err error
		reply, err = chat.Chat(ctx, messages)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &Answer{
		Query:        res.Query,
		Answer:       reply,
		Chunks:       res.Matches,
		GenerationMs: time.Since(start).Milliseconds(),
	}, nil
}

// SetChat installs the chat provider Answer uses. Call it before Start.
func (o *Orchestrator) SetChat(chat llm.Chat) {
	o.chat = chat
}

// Answer retrieves the k best chunks of a document for query and generates
// an answer grounded on them.
func (o *Orchestrator) Answer(ctx context.Context, docID, query string, k int) (*Answer, error) {
	if o.chat == nil {
		return nil, ErrNoChat
	}
	start := time.Now()
	res, err := o.Search(ctx, docID, query, k)
	if err != nil {
		return nil, err
	}
	retrieval := time.Since(start)

	log := o.log.With("doc_id", docID)
	ans, err := generate(ctx, o.chat, res, o.backoff, log)
	if err != nil {
		return nil, err
	}
	ans.RetrievalMs = retrieval.Milliseconds()
	log.Info("answer generated", "chunks", len(ans.Chunks), "retrieval_ms", ans.RetrievalMs, "generation_ms", ans.GenerationMs)
	return ans, nil
}
