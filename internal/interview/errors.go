package interview

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("interview already completed")
	ErrVisionDisabled   = errors.New("video proctoring is not enabled")
)
