// Package llm answers questions over retrieved chunks through a chat model.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Chat sends a conversation to a model and returns the reply text.
type Chat interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// ErrNoContext is returned when there are no retrieved chunks to ground an
// answer on.
var ErrNoContext = errors.New("no retrieved chunks to answer from")

// RetryableError indicates a transient provider failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
