package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicClient implements Generator using the Anthropic SDK.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic creates an Anthropic generator.
func NewAnthropic(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{client: &client, model: model, maxTokens: 1024}, nil
}

func (a *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{{
			Role:    anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(prompt)},
		}},
		Temperature: anthropic.Float(0.3),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("anthropic API call (status %d): %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func (a *AnthropicClient) ModelID() string { return a.model }
