package notify

import (
	"context"
	"time"
)

// Backoff defines the interface for retry delay strategies
type Backoff interface {
	// NextRetry calculates the delay before the given retry attempt
	NextRetry(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with a cap
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NextRetry calculates the next retry delay using exponential backoff
func (s *ExponentialBackoff) NextRetry(attempt int) time.Duration {
	delay := float64(s.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= s.Multiplier
	}

	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// Retrier runs one operation a bounded number of times. Every attempt
// gets its own timeout; a hung attempt counts as failed and consumes a
// retry slot. The outcome is returned, never thrown: callers branch on
// the attempt count and final error.
type Retrier struct {
	// MaxAttempts bounds the total attempts; values below 1 mean one
	// attempt with no retry
	MaxAttempts int
	// Backoff yields the sleep between attempts; nil means no delay
	Backoff Backoff
	// Timeout bounds each individual attempt; zero means unbounded
	Timeout time.Duration
}

// Do invokes fn until it succeeds or attempts are exhausted. It returns
// the number of attempts made and the last error (nil on success).
// Cancellation of ctx during a backoff sleep stops further attempts.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		}

		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return attempt + 1, nil
		}
		lastErr = err

		if attempt == maxAttempts-1 {
			break
		}
		if !r.sleep(ctx, attempt) {
			return attempt + 1, lastErr
		}
	}

	return maxAttempts, lastErr
}

// sleep waits out the backoff delay, returning false if ctx ended first
func (r *Retrier) sleep(ctx context.Context, attempt int) bool {
	if r.Backoff == nil {
		return ctx.Err() == nil
	}

	delay := r.Backoff.NextRetry(attempt)
	if delay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
