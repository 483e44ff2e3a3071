package llm

import (
	"context"

	"github.com/pavelanni/interviewer/internal/workpool"
)

type pooledGenerator struct {
	inner Generator
	pool  *workpool.Pool
}

// WithPool limits concurrent calls to g through the shared worker pool.
func WithPool(g Generator, p *workpool.Pool) Generator {
	return &pooledGenerator{inner: g, pool: p}
}

func (p *pooledGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return workpool.Run(ctx, p.pool, func(ctx context.Context) (string, error) {
		return p.inner.Generate(ctx, prompt)
	})
}

func (p *pooledGenerator) ModelID() string { return p.inner.ModelID() }
