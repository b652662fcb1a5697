package ollama

import (
	"context"
	"math"
	"time"
)

// attemptFunc performs one call. retryable reports whether err is transient.
type attemptFunc func(ctx context.Context) (out string, retryable bool, err error)

// calculateBackoff calculates exponential backoff duration
func calculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	// Exponential backoff: initial * 2^attempt
	backoff := float64(initial) * math.Pow(2, float64(attempt))

	// Cap at max
	if backoff > float64(max) {
		backoff = float64(max)
	}

	return time.Duration(backoff)
}

// retryWithBackoff runs fn up to MaxRetries+1 times, stopping on success, on a non-retryable
// error or when ctx is done. It returns the last error and the number of attempts made.
func (c *Client) retryWithBackoff(ctx context.Context, reqID string, fn attemptFunc) (string, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		// Check context cancellation
		if err := ctx.Err(); err != nil {
			return "", attempts, err
		}

		attempts++
		out, retryable, err := fn(ctx)
		if err == nil {
			return out, attempts, nil
		}
		lastErr = err
		if !retryable {
			return "", attempts, err
		}

		// Don't wait after last attempt
		if attempt == c.cfg.MaxRetries {
			break
		}

		backoff := calculateBackoff(attempt, c.cfg.InitialBackoff, c.cfg.MaxBackoff)
		c.logger.Warn("ollama.generate.retry",
			"req_id", reqID,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"backoff_ms", backoff.Milliseconds(),
			"error", err,
		)

		// Wait with context cancellation support
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", attempts, ctx.Err()
		case <-timer.C:
		}
	}
	return "", attempts, lastErr
}
