/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/throttled/throttled/v2"

	"github.com/acronis/go-lrucache/lrucache"
)

// LeakyBucketLimiter limits requests with GCRA (Generic Cell Rate Algorithm), a leaky bucket variant.
// See https://brandur.org/rate-limiting#gcra for a good explanation.
type LeakyBucketLimiter struct {
	gcra *throttled.GCRARateLimiterCtx
}

// NewLeakyBucketLimiter creates a GCRA limiter with the given emission rate and burst.
// Theoretical arrival times are kept in an LRU cache of maxKeys entries.
// With zero maxKeys every key shares the same arrival time.
func NewLeakyBucketLimiter(maxRate Rate, maxBurst, maxKeys int) (*LeakyBucketLimiter, error) {
	store, err := newTATStore(maxKeys)
	if err != nil {
		return nil, err
	}
	quota := throttled.RateQuota{
		MaxRate:  throttled.PerDuration(maxRate.Count, maxRate.Duration),
		MaxBurst: maxBurst - 1, // GCRA allows MaxBurst requests on top of the first one
	}
	gcra, err := throttled.NewGCRARateLimiterCtx(store, quota)
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	return &LeakyBucketLimiter{gcra: gcra}, nil
}

// Allow checks the request against the key's theoretical arrival time.
func (l *LeakyBucketLimiter) Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	limited, res, err := l.gcra.RateLimitCtx(ctx, key, 1)
	if err != nil {
		return false, 0, err
	}
	return !limited, res.RetryAfter, nil
}

// tatStore is a throttled.GCRAStoreCtx backed by the LRU cache.
// Stored values are theoretical arrival times in Unix nanoseconds and expire with the TTL GCRA asks for.
type tatStore struct {
	mu     sync.Mutex
	tats   *lrucache.Cache[string, int64]
	shared bool
}

var _ throttled.GCRAStoreCtx = (*tatStore)(nil)

func newTATStore(maxKeys int) (*tatStore, error) {
	capacity := maxKeys
	if maxKeys == 0 {
		capacity = 1
	}
	tats, err := lrucache.NewCache[string, int64](capacity)
	if err != nil {
		return nil, fmt.Errorf("new LRU cache for GCRA state: %w", err)
	}
	return &tatStore{tats: tats, shared: maxKeys == 0}, nil
}

func (s *tatStore) storeKey(key string) string {
	if s.shared {
		return ""
	}
	return key
}

// GetWithTime returns the stored value and the current time. Missing keys are reported as -1.
func (s *tatStore) GetWithTime(_ context.Context, key string) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if v, ok := s.tats.Get(s.storeKey(key)); ok {
		return v, now, nil
	}
	return -1, now, nil
}

func (s *tatStore) SetIfNotExistsWithTTL(_ context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key = s.storeKey(key)
	if s.tats.Contains(key) {
		return false, nil
	}
	return true, s.tats.PutWithTTL(key, value, clampTTL(ttl))
}

func (s *tatStore) CompareAndSwapWithTTL(_ context.Context, key string, old, newVal int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key = s.storeKey(key)
	if cur, ok := s.tats.Peek(key); !ok || cur != old {
		return false, nil
	}
	return true, s.tats.PutWithTTL(key, newVal, clampTTL(ttl))
}

// clampTTL maps non-positive TTLs to NoExpiration, the cache accepts only positive ones.
func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return lrucache.NoExpiration
	}
	return ttl
}
