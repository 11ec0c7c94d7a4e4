package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to stay within the supplied context.
const SystemPrompt = `You are a helpful assistant. Answer the question based on the provided context.
If the context does not contain the answer, say so instead of guessing.`

// ContextSeparator sits between retrieved chunks in the context block.
const ContextSeparator = "\n---\n"

// BuildMessages creates the system and user messages for answering query
// from contexts, the retrieved chunk texts in rank order.
func BuildMessages(query string, contexts []string) ([]Message, error) {
	if len(contexts) == 0 {
		return nil, ErrNoContext
	}
	return []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("## Context:\n%s\n\n## Question:\n%s", strings.Join(contexts, ContextSeparator), query)},
	}, nil
}
