package llm

import (
	"context"
	"sync"
)

// MockResponse is a canned response for the Mock generator.
type MockResponse struct {
	Text string
	Err  error
}

// Mock is a deterministic Generator for tests. It returns canned responses
// in FIFO order, or Fallback when the queue is empty, and records prompts.
type Mock struct {
	mu        sync.Mutex
	responses []MockResponse
	Fallback  *MockResponse
	Prompts   []string
}

// NewMock creates a Mock with the given canned responses.
func NewMock(responses ...MockResponse) *Mock {
	return &Mock{responses: responses}
}

// Generate returns the next canned response. An empty queue without a
// Fallback yields ErrUnavailable.
func (m *Mock) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)

	var resp MockResponse
	switch {
	case len(m.responses) > 0:
		resp = m.responses[0]
		m.responses = m.responses[1:]
	case m.Fallback != nil:
		resp = *m.Fallback
	default:
		return "", ErrUnavailable
	}
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// ModelID returns "mock".
func (m *Mock) ModelID() string { return "mock" }

// Add appends a canned response to the queue.
func (m *Mock) Add(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// Offline is a Generator that always fails. The interview keeps running on
// heuristic scores and fallback questions.
type Offline struct{}

func (Offline) Generate(context.Context, string) (string, error) { return "", ErrUnavailable }

func (Offline) ModelID() string { return "offline" }
