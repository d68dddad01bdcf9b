/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations with backoff policies built on top of cenkalti/backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy creates a fresh backoff sequence for every retried operation.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff calls f.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// IsRetryable reports whether the operation should be repeated after err.
type IsRetryable func(err error) bool

// RetryableFunc is an operation which may be repeated.
type RetryableFunc func(ctx context.Context) error

// DoWithRetry runs fn until it succeeds, the policy gives up or ctx is done.
// With nil isRetryable every error is retried. notify, if not nil, is called after each failed attempt
// with the delay before the next one.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	bo := backoff.WithContext(p.NewBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		err := fn(bo.Context())
		if err == nil || isRetryable == nil || isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, bo, notify)
}

// ExponentialBackoffPolicy repeats an operation up to MaxAttempts times (unlimited if zero)
// with delays growing by Multiplier (backoff.DefaultMultiplier if zero) starting from InitialInterval.
type ExponentialBackoffPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxAttempts     int
}

// NewExponentialBackoffPolicy creates an ExponentialBackoffPolicy with the default multiplier.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetryAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{
		InitialInterval: initialInterval,
		Multiplier:      backoff.DefaultMultiplier,
		MaxAttempts:     maxRetryAttempts,
	}
}

// NewBackOff implements Policy. Unlike backoff.ExponentialBackOff, the sequence has no elapsed time limit.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	opts := []backoff.ExponentialBackOffOpts{
		backoff.WithInitialInterval(p.InitialInterval),
		backoff.WithMaxElapsedTime(0),
	}
	if p.Multiplier > 0 {
		opts = append(opts, backoff.WithMultiplier(p.Multiplier))
	}
	return limitAttempts(backoff.NewExponentialBackOff(opts...), p.MaxAttempts)
}

// ConstantBackoffPolicy repeats an operation up to MaxAttempts times (unlimited if zero) every Interval.
type ConstantBackoffPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// NewConstantBackoffPolicy creates a ConstantBackoffPolicy.
func NewConstantBackoffPolicy(interval time.Duration, maxRetryAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{Interval: interval, MaxAttempts: maxRetryAttempts}
}

// NewBackOff implements Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return limitAttempts(backoff.NewConstantBackOff(p.Interval), p.MaxAttempts)
}

func limitAttempts(bo backoff.BackOff, maxAttempts int) backoff.BackOff {
	if maxAttempts <= 0 {
		bo.Reset()
		return bo
	}
	limited := backoff.WithMaxRetries(bo, uint64(maxAttempts))
	limited.Reset()
	return limited
}
