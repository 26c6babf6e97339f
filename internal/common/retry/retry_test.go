package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	stderrors "portlink-orchestrator/internal/common/errors"
)

func instantSleep(recorded *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	var sleeps []time.Duration
	policy := DefaultPolicy()
	policy.Sleep = instantSleep(&sleeps)

	calls := 0
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	var sleeps []time.Duration
	policy := DefaultPolicy()
	policy.Sleep = instantSleep(&sleeps)

	calls := 0
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, sleeps, 2)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	var sleeps []time.Duration
	policy := DefaultPolicy()
	policy.Sleep = instantSleep(&sleeps)

	permanent := stderrors.NewInvalidInputError("bad")
	calls := 0
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var sleeps []time.Duration
	policy := DefaultPolicy().WithMaxAttempts(4)
	policy.Sleep = instantSleep(&sleeps)

	transient := errors.New("status 503")
	calls := 0
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		return transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 4, calls)
	assert.Len(t, sleeps, 3)
}

func TestDo_BackoffNonDecreasingAndCapped(t *testing.T) {
	policy := &Policy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    1 * time.Second,
		Multiplier:  2.0,
		RetryIf:     func(error) bool { return true },
	}

	var prev time.Duration
	for attempt := 1; attempt < 10; attempt++ {
		d := policy.DelayFor(attempt)
		assert.GreaterOrEqual(t, d, prev, "delay must be non-decreasing")
		assert.LessOrEqual(t, d, policy.MaxDelay, "delay must be capped")
		prev = d
	}
	assert.Equal(t, 100*time.Millisecond, policy.DelayFor(1))
	assert.Equal(t, 200*time.Millisecond, policy.DelayFor(2))
	assert.Equal(t, 400*time.Millisecond, policy.DelayFor(3))
	assert.Equal(t, 1*time.Second, policy.DelayFor(6))
	assert.Equal(t, 1*time.Second, policy.DelayFor(9))
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	policy := DefaultPolicy()
	policy.Sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	calls := 0
	err := Do(context.Background(), policy, func(attempt int) error {
		calls++
		return errors.New("timeout")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry canceled")
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptIndexPassedToFn(t *testing.T) {
	var sleeps []time.Duration
	policy := DefaultPolicy().WithMaxAttempts(3)
	policy.Sleep = instantSleep(&sleeps)

	var seen []int
	_ = Do(context.Background(), policy, func(attempt int) error {
		seen = append(seen, attempt)
		return errors.New("timed out")
	})

	assert.Equal(t, []int{0, 1, 2}, seen)
}
