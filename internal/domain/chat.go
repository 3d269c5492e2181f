package domain

import "context"

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamChunk is one increment of a streamed completion. Err is set on the
// final chunk when the stream terminated abnormally.
type StreamChunk struct {
	Content string
	Err     error
}

// LLM generates chat completions.
type LLM interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	Stream(ctx context.Context, messages []ChatMessage) (<-chan StreamChunk, error)
}
