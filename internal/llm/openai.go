package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAI calls the chat completions endpoint. The SDK's own retries are
// disabled; throttling and server errors come back as *RetryableError.
type OpenAI struct {
	client      openai.Client
	model       string
	temperature float64
}

// OpenAIOptions configures NewOpenAI. BaseURL is for compatible gateways
// such as Azure OpenAI proxies, and for tests.
type OpenAIOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
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
	return &OpenAI{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		temperature: opts.Temperature,
	}
}

func (o *OpenAI) Chat(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
		Temperature: openai.Float(o.temperature),
	}
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
				return "", &RetryableError{StatusCode: apiErr.StatusCode, Message: apiErr.Error()}
			}
			return "", fmt.Errorf("openai chat status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}
