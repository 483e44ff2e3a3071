package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements Generator using the Google Gemini SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a Gemini generator.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: model, temperature: 0.3}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	temp := g.temperature
	config := &genai.GenerateContentConfig{Temperature: &temp}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini API call (code %d): %w", apiErr.Code, err)
		}
		return "", fmt.Errorf("gemini API call: %w", err)
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiClient) ModelID() string { return g.model }
