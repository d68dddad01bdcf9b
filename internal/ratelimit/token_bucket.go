/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter limits requests with a token bucket per key.
type TokenBucketLimiter struct {
	bucketFor func(key string) *rate.Limiter
}

// NewTokenBucketLimiter creates a token bucket limiter that refills at maxRate and holds up to maxBurst tokens.
func NewTokenBucketLimiter(maxRate Rate, maxBurst, maxKeys int) (*TokenBucketLimiter, error) {
	refill := rate.Limit(maxRate.perSecond())
	bucketFor, err := limiterByKey(maxKeys, func() *rate.Limiter { return rate.NewLimiter(refill, maxBurst) })
	if err != nil {
		return nil, err
	}
	return &TokenBucketLimiter{bucketFor: bucketFor}, nil
}

// Allow takes a token from the key's bucket.
// A rejected request does not consume a token.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	r := l.bucketFor(key).Reserve()
	delay := r.Delay()
	if delay == 0 {
		return true, 0, nil
	}
	r.Cancel()
	return false, delay, nil
}
