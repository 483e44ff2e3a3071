package gcp

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Retry bounds attempts at a Google Cloud call.
type Retry struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetry makes three attempts two seconds apart.
var DefaultRetry = Retry{MaxAttempts: 3, Backoff: 2 * time.Second}

// Retryable reports whether err is a transient gRPC failure.
func Retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}
	return false
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The wait between attempts is fixed.
func Do[T any](ctx context.Context, r Retry, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := max(r.MaxAttempts, 1)
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		last = err
		if !Retryable(err) || attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(r.Backoff):
		}
	}
	return zero, last
}
