package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// EmbeddingError wraps failures of the embedding endpoint. Retrieval treats
// it as "no context available", never as a request-fatal error.
type EmbeddingError struct {
	Reason string
	Err    error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("embedding error: %s", e.Reason)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// CompletionError wraps failures of the text generation endpoint.
// Retryable distinguishes transient faults (network, 5xx, rate limits)
// from permanent ones (auth, malformed input).
type CompletionError struct {
	Reason    string
	Retryable bool
	Err       error
}

func (e *CompletionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("completion error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("completion error: %s", e.Reason)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// isTransient reports whether an upstream API error is worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code >= 500
	}
	// Plain network errors come through without a status code
	return true
}
