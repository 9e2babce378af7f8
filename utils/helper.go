package utils

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"portfolio-views/middlewares"
)

// RetryWithExponentialBackoff runs operation up to maxRetries times, doubling
// the delay after each failure and adding up to half of it as jitter. It is
// meant for startup connections, not for the increment path.
func RetryWithExponentialBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration) error {
	delay := initialDelay
	var err error

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		// Apply jitter: add a random duration between 0 and half the current delay.
		wait := delay
		if half := int64(delay / 2); half > 0 {
			wait += time.Duration(rand.Int63n(half))
		}
		middlewares.AuditLogger.Printf("Attempt %d failed: %v. Retrying in %v...", i+1, err, wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("gave up after %d attempts: %w", i+1, ctx.Err())
		}
		delay *= 2
	}
	middlewares.ErrorLogger.Printf("operation failed after %d attempts: %v", maxRetries, err)
	return fmt.Errorf("operation failed after %d attempts: %w", maxRetries, err)
}
