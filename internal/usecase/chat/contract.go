package chat

import (
	"context"

	"github.com/clariq-health/docqa/internal/domain"
)

// Retriever fetches passages relevant to a query. An empty slice means no
// usable context; retrieval never fails the chat.
type Retriever interface {
	Search(ctx context.Context, query string) []domain.Passage
}

// LLM generates the final answer.
type LLM interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
	Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan domain.StreamChunk, error)
}
