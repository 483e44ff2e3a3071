package llm

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("LLM returned an empty response")

// ErrUnavailable is returned by the offline generator.
var ErrUnavailable = errors.New("LLM is not configured")

// GenerationError reports that a generator gave up after retrying.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
