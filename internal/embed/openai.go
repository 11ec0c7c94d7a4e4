package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// maxBatch is the number of inputs sent per request.
const maxBatch = 256

// OpenAI calls the OpenAI embeddings endpoint. The SDK's own retries are
// disabled; throttling and server errors come back as *RetryableError so the
// pipeline's backoff decides.
type OpenAI struct {
	client     openai.Client
	model      string
	dimensions int
}

// OpenAIOptions configures NewOpenAI. BaseURL is for compatible gateways and
// tests.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}

func NewOpenAI(opts OpenAIOptions) *OpenAI {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dims := opts.Dimensions
	if dims <= 0 {
		dims = 1536
	}
	return &OpenAI{
		client:     openai.NewClient(reqOpts...),
		model:      model,
		dimensions: dims,
	}
}

func (o *OpenAI) Dimensions() int { return o.dimensions }

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := o.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (o *OpenAI) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch},
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
				return nil, &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
			}
			return nil, fmt.Errorf("openai embeddings status %d: %w", apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(batch), len(resp.Data))
	}

	vecs := make([][]float64, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(batch) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}
