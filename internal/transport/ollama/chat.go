// Package ollama talks to a local Ollama server through its OpenAI-compatible
// chat completion endpoint. Any OpenAI-compatible provider works the same way.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/clariq-health/docqa/internal/domain"
)

// Client is a chat completion provider over the OpenAI-compatible API.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	topP        float32
	logger      *zap.Logger
}

// Config holds the completion provider settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TopP        float32
	Logger      *zap.Logger
}

// New creates a chat completion client. Ollama ignores the API key but the
// SDK requires a non-empty one.
func New(cfg *Config) *Client {
	key := cfg.APIKey
	if key == "" {
		key = "ollama"
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		topP:        cfg.TopP,
		logger:      cfg.Logger,
	}
}

// Complete implements domain.LLM.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(messages, false))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w: %w", err, domain.ErrCompletion)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrCompletion)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream implements domain.LLM. The returned channel is closed when the
// stream ends; an abnormal termination is delivered as a final chunk with
// Err set.
func (c *Client) Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan domain.StreamChunk, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(messages, true))
	if err != nil {
		return nil, fmt.Errorf("open completion stream: %w: %w", err, domain.ErrCompletion)
	}

	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case out <- domain.StreamChunk{Err: fmt.Errorf("completion stream: %w: %w", err, domain.ErrCompletion)}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- domain.StreamChunk{Content: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) buildRequest(messages []domain.ChatMessage, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		TopP:        c.topP,
		Stream:      stream,
	}
}
