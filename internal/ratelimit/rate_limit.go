/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Alg is a rate limiting algorithm.
type Alg string

// Supported rate limiting algorithms.
const (
	AlgTokenBucket   Alg = "tokenBucket"
	AlgLeakyBucket   Alg = "leakyBucket"
	AlgSlidingWindow Alg = "slidingWindow"
)

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// RateFromRPS converts a (possibly fractional) number of requests per second into Rate.
func RateFromRPS(rps float64) Rate {
	if rps >= 1 && rps == math.Trunc(rps) {
		return Rate{Count: int(rps), Duration: time.Second}
	}
	return Rate{Count: 1, Duration: time.Duration(float64(time.Second) / rps)}
}

func (r Rate) perSecond() float64 {
	return float64(r.Count) / r.Duration.Seconds()
}

// Limiter interface defines the rate limiting contract.
// retryAfter is meaningful only when the request is not allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// NewLimiter creates a limiter for the given algorithm.
// maxBurst is the number of requests that may be served at once (ignored by the sliding window).
// If maxKeys is zero, a single state is shared by all keys.
func NewLimiter(alg Alg, maxRate Rate, maxBurst, maxKeys int) (Limiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("rate should be positive, got %d per %s", maxRate.Count, maxRate.Duration)
	}
	if maxBurst < 1 {
		maxBurst = 1
	}
	switch alg {
	case AlgTokenBucket, "":
		return NewTokenBucketLimiter(maxRate, maxBurst, maxKeys)
	case AlgLeakyBucket:
		return NewLeakyBucketLimiter(maxRate, maxBurst, maxKeys)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiter(maxRate, maxKeys)
	}
	return nil, fmt.Errorf("unknown rate limiting algorithm %q", alg)
}
