package main

import (
	"context"
	"time"
)

const (
	cleanupAttempts = 3
	cleanupBackoff  = 2 * time.Second
)

// processWithRetry runs fn up to attempts times, doubling the wait between
// tries. It returns the last error, or ctx.Err() if ctx ends while waiting.
func processWithRetry(ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
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
