// Package util holds small cross-cutting helpers shared by the fetch layer.
package util

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryWithBackoff runs fn up to maxRetries+1 times, sleeping 1s, 2s, 4s...
// between failed attempts. fn receives the 0-indexed attempt number. A
// cancelled context short-circuits the wait and returns the context error.
func RetryWithBackoff(ctx context.Context, maxRetries int, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		backoff := time.Duration(1<<attempt) * time.Second
		slog.Debug("Attempt failed, backing off", "attempt", attempt+1, "backoff", backoff, "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
