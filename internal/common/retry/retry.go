// Package retry provides the reusable backoff policy used by the executor.
package retry

import (
	"context"
	"fmt"
	"time"

	"portlink-orchestrator/internal/common/errors"
)

// SleepFunc waits for the given delay or returns early with the context error.
// Tests inject a recorder here instead of sleeping for real.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy defines retry behavior for transient failures.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// RetryIf determines whether an error is retryable.
	RetryIf func(error) bool

	// Sleep waits between attempts. Nil means real time.After sleeping.
	Sleep SleepFunc
}

// DefaultPolicy returns the policy used for capability-provider calls.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		RetryIf:     errors.IsRetryable,
	}
}

// WithMaxAttempts returns a copy of the policy with a different attempt budget.
func (p *Policy) WithMaxAttempts(n int) *Policy {
	cp := *p
	cp.MaxAttempts = n
	return &cp
}

// DelayFor returns the backoff delay preceding the given retry attempt
// (attempt 1 is the first retry). The delay is non-decreasing and capped.
func (p *Policy) DelayFor(attempt int) time.Duration {
	delay := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
		if delay >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do executes fn with retry logic. The attempt index (0-based) is passed to fn
// so callers can record how many retries a result needed.
func Do(ctx context.Context, policy *Policy, fn func(attempt int) error) error {
	if policy == nil {
		policy = DefaultPolicy()
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := policy.sleep(ctx, policy.DelayFor(attempt)); err != nil {
				return fmt.Errorf("retry canceled: %w", err)
			}
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if policy.RetryIf != nil && !policy.RetryIf(lastErr) {
			return lastErr
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry canceled: %w", ctx.Err())
		}
	}

	return lastErr
}
