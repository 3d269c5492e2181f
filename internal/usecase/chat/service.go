// Package chat answers user questions over the indexed corpus.
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clariq-health/docqa/internal/domain"
)

const systemPrompt = `You are a helpful assistant that answers questions about the user's documents.
Ground your answers in the provided context excerpts and cite them where possible.
If the context does not contain the answer, say so instead of guessing.`

// historyLimit caps how many prior turns are forwarded to the model.
const historyLimit = 10

// Service orchestrates retrieval-augmented chat.
type Service struct {
	retriever Retriever
	llm       LLM
	logger    *zap.Logger
}

// New creates a chat service.
func New(retriever Retriever, llm LLM, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, llm: llm, logger: logger}
}

// Answer produces a full answer for the query. When useRAG is set, retrieved
// passages are inlined into the prompt; an empty retrieval result degrades to
// a context-free prompt.
func (s *Service) Answer(
	ctx context.Context, query string, history []domain.ChatMessage, useRAG bool,
) (string, []string, error) {
	messages, sources := s.buildMessages(ctx, query, history, useRAG)

	answer, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}
	return answer, sources, nil
}

// Stream produces the answer incrementally. Sources are known before the
// first token, so they are returned up front; the channel closes when the
// model finishes or the context is cancelled.
func (s *Service) Stream(
	ctx context.Context, query string, history []domain.ChatMessage, useRAG bool,
) (<-chan domain.StreamChunk, []string, error) {
	messages, sources := s.buildMessages(ctx, query, history, useRAG)

	ch, err := s.llm.Stream(ctx, messages)
	if err != nil {
		return nil, nil, fmt.Errorf("open answer stream: %w", err)
	}
	return ch, sources, nil
}

func (s *Service) buildMessages(
	ctx context.Context, query string, history []domain.ChatMessage, useRAG bool,
) ([]domain.ChatMessage, []string) {
	var passages []domain.Passage
	if useRAG {
		passages = s.retriever.Search(ctx, query)
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})

	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	messages = append(messages, history...)

	userContent := query
	if len(passages) > 0 {
		userContent = fmt.Sprintf("Context:\n%s\nQuestion: %s", formatContext(passages), query)
	}
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: userContent})

	return messages, collectSources(passages)
}

// formatContext renders passages as numbered excerpts with provenance.
func formatContext(passages []domain.Passage) string {
	var sb strings.Builder
	for i, p := range passages {
		source := p.Metadata[domain.MetaSource]
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&sb, "[%d] (source: %s, relevance: %.2f)\n%s\n\n", i+1, source, p.Score, p.Text)
	}
	return sb.String()
}

// collectSources returns distinct source names in retrieval order.
func collectSources(passages []domain.Passage) []string {
	seen := make(map[string]struct{}, len(passages))
	var sources []string
	for _, p := range passages {
		source := p.Metadata[domain.MetaSource]
		if source == "" {
			continue
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	return sources
}
