// Package speech turns recorded candidate answers into text.
package speech

import (
	"context"
	"errors"
	"strings"

	"github.com/pavelanni/interviewer/internal/workpool"
)

// ErrDisabled is returned by Disabled for every call.
var ErrDisabled = errors.New("speech recognition disabled")

// Transcriber converts encoded audio to text. An empty result with a nil
// error means nothing intelligible was said.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Disabled is used when no recognition backend is configured.
type Disabled struct{}

func (Disabled) Transcribe(context.Context, []byte, string) (string, error) {
	return "", ErrDisabled
}

// Static returns Text for every call. Useful in tests and demos.
type Static struct {
	Text string
	Err  error
}

func (s Static) Transcribe(context.Context, []byte, string) (string, error) {
	return s.Text, s.Err
}

type pooled struct {
	inner Transcriber
	pool  *workpool.Pool
}

// WithPool limits concurrent transcriptions through the shared worker pool.
func WithPool(t Transcriber, p *workpool.Pool) Transcriber {
	return &pooled{inner: t, pool: p}
}

func (p *pooled) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return workpool.Run(ctx, p.pool, func(ctx context.Context) (string, error) {
		return p.inner.Transcribe(ctx, audio, mimeType)
	})
}

// normalizeMIME lowercases a content type and drops parameters such as
// "codecs=opus".
func normalizeMIME(mimeType string) string {
	m, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mimeType)), ";")
	return strings.TrimSpace(m)
}
