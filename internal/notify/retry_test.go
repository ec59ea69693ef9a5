package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff_NextRetry(t *testing.T) {
	backoff := &ExponentialBackoff{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	assert.Equal(t, time.Second, backoff.NextRetry(0))
	assert.Equal(t, 2*time.Second, backoff.NextRetry(1))
	assert.Equal(t, 4*time.Second, backoff.NextRetry(2))
	assert.Equal(t, 8*time.Second, backoff.NextRetry(3))

	// Capped at MaxDelay
	assert.Equal(t, 30*time.Second, backoff.NextRetry(10))
}

func TestRetrier_SucceedsFirstAttempt(t *testing.T) {
	r := &Retrier{MaxAttempts: 3, Backoff: &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2}}

	calls := 0
	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetrier_SucceedsAfterRetries(t *testing.T) {
	r := &Retrier{MaxAttempts: 3, Backoff: &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}}

	calls := 0
	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	r := &Retrier{MaxAttempts: 3, Backoff: &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, Multiplier: 2}}

	wantErr := errors.New("permanent")
	calls := 0
	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return wantErr
	})

	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestRetrier_ZeroMaxAttemptsMeansOne(t *testing.T) {
	r := &Retrier{}

	calls := 0
	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetrier_PerAttemptTimeout(t *testing.T) {
	r := &Retrier{
		MaxAttempts: 2,
		Backoff:     &ExponentialBackoff{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
		Timeout:     20 * time.Millisecond,
	}

	// Each attempt hangs until its own deadline fires: the timeout must
	// cancel the attempt, not the whole retry loop
	var mu sync.Mutex
	var deadlines []bool
	attempts, err := r.Do(context.Background(), func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		mu.Lock()
		deadlines = append(deadlines, hasDeadline)
		mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts, "a hung attempt consumes a retry slot")
	assert.Equal(t, []bool{true, true}, deadlines)
}

func TestRetrier_ContextCancelDuringBackoff(t *testing.T) {
	r := &Retrier{
		MaxAttempts: 5,
		Backoff:     &ExponentialBackoff{InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 1},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	attempts, err := r.Do(ctx, func(ctx context.Context) error {
		return errors.New("always fails")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Less(t, time.Since(start), time.Second, "cancel must interrupt the backoff sleep")
}

func TestRetryPolicy_Retrier(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:  4,
		InitialDelay: 2 * time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   3,
		Timeout:      5 * time.Second,
	}

	r := p.Retrier()
	assert.Equal(t, 4, r.MaxAttempts)
	assert.Equal(t, 5*time.Second, r.Timeout)
	assert.Equal(t, 2*time.Second, r.Backoff.NextRetry(0))
	assert.Equal(t, 6*time.Second, r.Backoff.NextRetry(1))
}
