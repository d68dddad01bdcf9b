/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"

	"github.com/RussellLuo/slidingwindow"
)

// SlidingWindowLimiter limits requests with a local sliding window counter per key.
type SlidingWindowLimiter struct {
	windowFor func(key string) *slidingwindow.Limiter
	window    time.Duration
}

// NewSlidingWindowLimiter creates a limiter that allows at most maxRate.Count requests per maxRate.Duration window.
func NewSlidingWindowLimiter(maxRate Rate, maxKeys int) (*SlidingWindowLimiter, error) {
	newWindow := func() *slidingwindow.Limiter {
		// The local window never fails to initialize, so the error is ignored.
		lim, _ := slidingwindow.NewLimiter(maxRate.Duration, int64(maxRate.Count),
			func() (slidingwindow.Window, slidingwindow.StopFunc) { return slidingwindow.NewLocalWindow() })
		return lim
	}
	windowFor, err := limiterByKey(maxKeys, newWindow)
	if err != nil {
		return nil, err
	}
	return &SlidingWindowLimiter{windowFor: windowFor, window: maxRate.Duration}, nil
}

// Allow counts the request in the key's current window.
// Retry-after of a rejected request points to the start of the next window.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	if l.windowFor(key).Allow() {
		return true, 0, nil
	}
	now := time.Now()
	nextWindow := now.Truncate(l.window).Add(l.window)
	return false, nextWindow.Sub(now), nil
}
