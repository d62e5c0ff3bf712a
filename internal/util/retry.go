package util

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy describes a bounded retry loop: how many attempts to make and
// how long to sleep between them. Backoff is positional; attempt n sleeps
// Backoff[n-1], with the last entry reused when attempts exceed its length.
type RetryPolicy struct {
	Attempts int
	Backoff  []time.Duration
}

// DefaultRetryPolicy retries once after a short pause, then gives up.
var DefaultRetryPolicy = RetryPolicy{
	Attempts: 2,
	Backoff:  []time.Duration{1 * time.Second, 4 * time.Second},
}

// delayFor returns the sleep before retry attempt n (1-based count of
// completed attempts).
func (p RetryPolicy) delayFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt > len(p.Backoff) {
		attempt = len(p.Backoff)
	}
	return p.Backoff[attempt-1]
}

// Retry runs fn up to p.Attempts times, sleeping between attempts per the
// policy. It stops early when fn succeeds or ctx is cancelled. The returned
// error wraps the last failure.
func Retry(ctx context.Context, p RetryPolicy, op string, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry %s cancelled: %w", op, err)
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.Attempts {
			break
		}
		delay := p.delayFor(attempt)
		slog.Warn("Retry attempt failed, backing off", "op", op, "attempt", attempt, "delay", delay, "error", lastErr)
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry %s cancelled: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, p.Attempts, lastErr)
}
