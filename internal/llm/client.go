// Package llm wraps an OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/edubull/eeebee/internal/metrics"
	"github.com/sashabaranov/go-openai"
)

// Message roles.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

var errEmptyCompletion = errors.New("completion returned no choices")

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config configures a Client.
type Config struct {
	APIKey    string
	BaseURL   string // empty = api.openai.com
	Model     string
	MaxTokens int
}

// Client talks to the chat completion endpoint.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// New creates a client.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &Client{
		client:    openai.NewClientWithConfig(oc),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

func toOpenAI(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// Stream yields content deltas. The sequence ends after the final delta or
// after yielding one error. Stopping iteration closes the stream.
func (c *Client) Stream(ctx context.Context, msgs []Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:     c.model,
			Messages:  toOpenAI(msgs),
			MaxTokens: c.maxTokens,
			Stream:    true,
		})
		if err != nil {
			metrics.LLMStreams.WithLabelValues("error").Inc()
			yield("", fmt.Errorf("chat stream request failed: %w", err))
			return
		}
		defer func() { _ = stream.Close() }()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				metrics.LLMStreams.WithLabelValues("ok").Inc()
				return
			}
			if err != nil {
				metrics.LLMStreams.WithLabelValues("error").Inc()
				c.logger.Warn("Chat stream failed", "error", err)
				yield("", fmt.Errorf("chat stream error: %w", err))
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				metrics.LLMStreams.WithLabelValues("abandoned").Inc()
				return
			}
		}
	}
}

// Complete runs a non-streaming completion. maxTokens <= 0 uses the client default.
func (c *Client) Complete(ctx context.Context, msgs []Message, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAI(msgs),
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
