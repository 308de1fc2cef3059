package ai

import (
	"context"
	"time"
)

const (
	maxAttempts    = 3
	initialBackoff = 200 * time.Millisecond
)

// withRetry runs fn up to maxAttempts times with exponential backoff.
// Only errors that shouldRetry accepts are retried; context cancellation
// always stops immediately.
func withRetry(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	var err error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !shouldRetry(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return err
}
