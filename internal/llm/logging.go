package llm

import (
	"context"
	"log/slog"
	"time"
)

type loggingGenerator struct {
	inner Generator
}

// WithLogging logs latency and outcome of every call at debug level and
// failures at warn level.
func WithLogging(g Generator) Generator {
	return &loggingGenerator{inner: g}
}

func (l *loggingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := l.inner.Generate(ctx, prompt)
	attrs := []any{
		"model", l.inner.ModelID(),
		"purpose", PurposeFrom(ctx),
		"latency_ms", time.Since(start).Milliseconds(),
		"prompt_chars", len(prompt),
	}
	if err != nil {
		slog.Warn("LLM request failed", append(attrs, "error", err)...)
		return "", err
	}
	slog.Debug("LLM request", append(attrs, "response_chars", len(out))...)
	return out, nil
}

func (l *loggingGenerator) ModelID() string { return l.inner.ModelID() }
