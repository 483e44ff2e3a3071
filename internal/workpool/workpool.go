// Package workpool bounds the number of in-flight calls to external
// collaborators (LLM, speech, vision) across all sessions.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the number of concurrent collaborator calls when unset.
const DefaultSize = 4

// Pool is a process-wide limit on concurrent work.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// New creates a pool admitting n concurrent calls. n <= 0 uses DefaultSize.
func New(n int) *Pool {
	if n <= 0 {
		n = DefaultSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n)), size: int64(n)}
}

// Size returns the pool capacity.
func (p *Pool) Size() int { return int(p.size) }

// Do runs fn once a slot is free. It returns ctx.Err() if the context ends
// while waiting.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire worker slot: %w", err)
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// Run is Do for functions returning a value.
func Run[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}
