// Package llm talks to text generation models. Every backend satisfies
// Generator and is composed with retry, pooling and logging decorators.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Generator produces a text completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	ModelID() string
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

// New creates a new OpenAI-compatible client. An empty baseURL uses the
// public OpenAI endpoint.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:         openai.NewClientWithConfig(config),
		model:       modelName,
		temperature: 0.3,
	}
}

// Ping checks that the endpoint answers and knows the configured model.
func (c *Client) Ping(ctx context.Context) error {
	models, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	for _, m := range models.Models {
		if m.ID == c.model || strings.TrimSuffix(m.ID, ":latest") == c.model {
			return nil
		}
	}
	slog.Warn("configured model not listed by endpoint", "model", c.model, "available", len(models.Models))
	return nil
}

// Generate sends the prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("LLM API call (status %d): %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "model", c.model, "raw", raw)
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}

// ModelID returns the configured model name.
func (c *Client) ModelID() string { return c.model }
