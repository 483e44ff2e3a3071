package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavelanni/interviewer/internal/workpool"
)

// Config selects and configures a backend.
type Config struct {
	Provider string // openai, gemini, anthropic, offline
	BaseURL  string
	APIKey   string
	Model    string
	Retry    RetryConfig
}

// NewGenerator creates a Generator from configuration, wrapped as
// caller → retry → pool → logging → backend.
func NewGenerator(ctx context.Context, cfg Config, pool *workpool.Pool) (Generator, error) {
	var base Generator
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		base = New(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case "gemini":
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini provider: %w", err)
		}
		base = g
	case "anthropic":
		a, err := NewAnthropic(cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("initializing anthropic provider: %w", err)
		}
		base = a
	case "offline":
		return Offline{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}

	g := WithLogging(base)
	if pool != nil {
		g = WithPool(g, pool)
	}
	return WithRetry(g, cfg.Retry), nil
}
