// Package llm wraps the hosted chat-completion and embedding models
// behind the domain interfaces.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"bookrag/internal/domain"
)

// Config configures the OpenAI-compatible model client.
type Config struct {
	BaseURL        string
	APIKeyEnv      string
	APIVersion     string
	ChatModel      string
	EmbeddingModel string
	Temperature    float64
	Timeout        time.Duration
}

// Client implements domain.ChatModel and domain.Embedder over one
// OpenAI-compatible endpoint (Azure deployments included).
type Client struct {
	api            openai.Client
	chatModel      string
	embeddingModel string
	temperature    float64
}

// NewClient creates a model client. A missing API key is a startup
// failure; the process must not serve without it.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIVersion != "" {
		opts = append(opts, option.WithQueryAdd("api-version", cfg.APIVersion))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Client{
		api:            openai.NewClient(opts...),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		temperature:    cfg.Temperature,
	}, nil
}

// Complete returns the model's full text response for the prompt.
func (c *Client) Complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, c.params(messages))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream starts a streaming completion and forwards text deltas on the
// returned channel. The channel closes when generation finishes; a
// mid-flight failure is delivered as the final chunk's Err.
func (c *Client) Stream(ctx context.Context, messages []domain.ChatMessage) (<-chan domain.StreamChunk, error) {
	stream := c.api.Chat.Completions.NewStreaming(ctx, c.params(messages))
	out := make(chan domain.StreamChunk)
	go func() {
		defer close(out)
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case out <- domain.StreamChunk{Delta: delta}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			select {
			case out <- domain.StreamChunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

func (c *Client) params(messages []domain.ChatMessage) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.chatModel),
		Messages:    msgs,
		Temperature: openai.Float(c.temperature),
	}
}
