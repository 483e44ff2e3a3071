package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RetryConfig controls the retry decorator. Backoff is fixed between attempts.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetry is three attempts two seconds apart.
var DefaultRetry = RetryConfig{MaxAttempts: 3, Backoff: 2 * time.Second}

// RetryGenerator retries failed generations and reports exhaustion as a
// *GenerationError.
type RetryGenerator struct {
	inner  Generator
	config RetryConfig
}

// WithRetry wraps a Generator with retry logic.
func WithRetry(g Generator, cfg RetryConfig) Generator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &RetryGenerator{inner: g, config: cfg}
}

func (r *RetryGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	attempts := 0
	for attempt := range r.config.MaxAttempts {
		attempts++
		out, err := r.inner.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err

		// Context errors are never retried.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrUnavailable) {
			break
		}
		if attempt == r.config.MaxAttempts-1 {
			break
		}

		slog.Warn("LLM call failed, retrying",
			"purpose", PurposeFrom(ctx), "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return "", &GenerationError{Attempts: attempts, Err: ctx.Err()}
		case <-time.After(r.config.Backoff):
		}
	}
	return "", &GenerationError{Attempts: attempts, Err: lastErr}
}

func (r *RetryGenerator) ModelID() string { return r.inner.ModelID() }
