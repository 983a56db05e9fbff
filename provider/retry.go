package provider

import (
	"context"
	"time"
)

// DefaultMaxRetries bounds transaction attempts when the caller does not
// specify one.
const DefaultMaxRetries = 3

// retryBaseDelay is the backoff unit; attempt n waits base × 2^n.
const retryBaseDelay = 100 * time.Millisecond

// Backoff returns the delay before the next attempt after a failed attempt
// (zero-based).
func Backoff(attempt int) time.Duration {
	return retryBaseDelay * time.Duration(1<<attempt)
}

// RunWithRetry executes run up to maxRetries times, retrying only errors that
// isRetryable classifies as transient and sleeping an exponentially growing
// delay between attempts. Non-transient errors propagate immediately. The
// returned attempt count includes the final attempt, successful or not.
func RunWithRetry(ctx context.Context, maxRetries int, isRetryable func(error) bool, run func(ctx context.Context) error) (int, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = run(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		if !isRetryable(err) || attempt == maxRetries-1 {
			return attempt + 1, err
		}

		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return attempt + 1, ctx.Err()
		}
	}
	return maxRetries, err
}
