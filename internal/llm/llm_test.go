package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pavelanni/interviewer/internal/workpool"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond}
}

func TestRetrySucceedsOnFirstAttempt(t *testing.T) {
	mock := NewMock(MockResponse{Text: "72"})
	g := WithRetry(mock, fastRetry())

	got, err := g.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "72" || mock.CallCount() != 1 {
		t.Errorf("got %q after %d calls", got, mock.CallCount())
	}
}

func TestRetryTransientThenSuccess(t *testing.T) {
	mock := NewMock(
		MockResponse{Err: errors.New("503")},
		MockResponse{Err: errors.New("503")},
		MockResponse{Text: "ok"},
	)
	g := WithRetry(mock, fastRetry())

	got, err := g.Generate(context.Background(), "p")
	if err != nil || got != "ok" {
		t.Fatalf("Generate() = %q, %v", got, err)
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetryExhaustedReturnsGenerationError(t *testing.T) {
	down := errors.New("down")
	mock := NewMock(
		MockResponse{Err: down},
		MockResponse{Err: down},
		MockResponse{Err: down},
		MockResponse{Text: "never reached"},
	)
	g := WithRetry(mock, fastRetry())

	_, err := g.Generate(context.Background(), "p")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError, got %T: %v", err, err)
	}
	if genErr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", genErr.Attempts)
	}
	if !errors.Is(err, down) {
		t.Error("GenerationError should unwrap to the last cause")
	}
	if mock.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", mock.CallCount())
	}
}

func TestRetryDoesNotRetryCancelledContext(t *testing.T) {
	mock := NewMock(MockResponse{Err: context.Canceled}, MockResponse{Text: "late"})
	g := WithRetry(mock, fastRetry())

	_, err := g.Generate(context.Background(), "p")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
}

func TestOfflineFailsFast(t *testing.T) {
	g := WithRetry(Offline{}, fastRetry())
	_, err := g.Generate(context.Background(), "p")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestMockFallback(t *testing.T) {
	mock := NewMock(MockResponse{Text: "first"})
	mock.Fallback = &MockResponse{Text: "again"}

	for i, want := range []string{"first", "again", "again"} {
		got, err := mock.Generate(context.Background(), "p")
		if err != nil || got != want {
			t.Errorf("call %d = %q, %v; want %q", i, got, err, want)
		}
	}
}

func TestDecoratorsKeepModelID(t *testing.T) {
	g := WithRetry(WithPool(WithLogging(NewMock()), workpool.New(1)), fastRetry())
	if g.ModelID() != "mock" {
		t.Errorf("ModelID() = %q, want mock", g.ModelID())
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"openai default", Config{APIKey: "k", Model: "m"}, false},
		{"offline", Config{Provider: "offline"}, false},
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"gemini without key", Config{Provider: "gemini"}, true},
		{"unknown", Config{Provider: "bogus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(ctx, tt.cfg, workpool.New(2))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGenerator() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
