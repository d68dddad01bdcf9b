/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"context"
	"sync"
	"time"
)

// LRUCache represents a thread-safe LRU cache with expiration mechanism and Prometheus metrics.
// Every operation is serialized by a single mutex, so operations are linearizable.
type LRUCache[K comparable, V any] struct {
	mu    sync.Mutex
	cache *Cache[K, V]

	loads loadGroup[K, V]
}

// New creates a new LRUCache with the provided maximum number of entries and metrics collector.
func New[K comparable, V any](maxEntries int, metricsCollector MetricsCollector) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metricsCollector, Options[K, V]{})
}

// NewWithOpts creates a new LRUCache with the provided maximum number of entries, metrics collector, and options.
// Metrics collector is used to collect statistics about cache usage.
// It can be nil, in this case, metrics will be disabled.
func NewWithOpts[K comparable, V any](
	maxEntries int, metricsCollector MetricsCollector, opts Options[K, V],
) (*LRUCache[K, V], error) {
	cache, err := NewCacheWithOpts[K, V](maxEntries, opts)
	if err != nil {
		return nil, err
	}
	if metricsCollector != nil {
		cache.metricsCollector = metricsCollector
	}
	return &LRUCache[K, V]{cache: cache}, nil
}

// Capacity returns the maximum number of entries the cache may hold.
func (c *LRUCache[K, V]) Capacity() int {
	return c.cache.Capacity() // immutable, no lock needed
}

// DefaultTTL returns the TTL used by Put.
func (c *LRUCache[K, V]) DefaultTTL() time.Duration {
	return c.cache.DefaultTTL()
}

// Get returns a value from the cache by the provided key.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(key)
}

// Peek returns a value from the cache without updating recency and hit/miss statistics.
func (c *LRUCache[K, V]) Peek(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Peek(key)
}

// Contains reports whether a live entry exists for the key.
func (c *LRUCache[K, V]) Contains(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Contains(key)
}

// Put adds a value to the cache with the default TTL.
// If the cache is full, the least recently used entry will be removed.
func (c *LRUCache[K, V]) Put(key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Put(key, value)
}

// PutWithTTL adds a value to the cache with the provided TTL.
// If the cache is full, the least recently used entry will be removed.
// Please note that expired entries are not removed immediately,
// but only when they are accessed or during periodic cleanup (see RunPeriodicCleanup).
func (c *LRUCache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.PutWithTTL(key, value, ttl)
}

// GetOrAdd returns a value from the cache by the provided key.
// If the key does not exist, it adds a new value to the cache with the default TTL.
func (c *LRUCache[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool, err error) {
	return c.GetOrAddWithTTL(key, valueProvider, c.cache.DefaultTTL())
}

// GetOrAddWithTTL returns a value from the cache by the provided key.
// If the key does not exist, it adds a new value to the cache with the provided TTL.
// The value provider is called while the lock is held.
func (c *LRUCache[K, V]) GetOrAddWithTTL(
	key K, valueProvider func() V, ttl time.Duration,
) (value V, exists bool, err error) {
	if _, err = computeExpiry(ttl, time.Time{}); err != nil {
		return value, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cache.validKey(key) {
		return value, false, ErrInvalidKey
	}
	if value, exists = c.cache.Get(key); exists {
		return value, true, nil
	}
	value = valueProvider()
	if err = c.cache.PutWithTTL(key, value, ttl); err != nil {
		return value, false, err
	}
	return value, false, nil
}

// GetOrLoad returns a value from the cache or loads it with the provided function and stores it with the default TTL.
// Concurrent calls for the same missing key share a single loader call.
// The loader is called without holding the cache lock. Loader errors are returned as is and nothing is stored.
// If the loader panics, the panic is propagated to the caller that ran it,
// and other callers waiting for the same key receive *PanicError.
func (c *LRUCache[K, V]) GetOrLoad(key K, loader func(key K) (V, error)) (value V, err error) {
	c.mu.Lock()
	if !c.cache.validKey(key) {
		c.mu.Unlock()
		return value, ErrInvalidKey
	}
	value, ok := c.cache.Get(key)
	c.mu.Unlock()
	if ok {
		return value, nil
	}
	return c.loads.Do(key, func() (V, error) {
		// Another loader might have finished while we were waiting for the group.
		if v, ok := c.Peek(key); ok {
			return v, nil
		}
		v, loadErr := loader(key)
		if loadErr != nil {
			return v, loadErr
		}
		if putErr := c.Put(key, v); putErr != nil {
			return v, putErr
		}
		return v, nil
	})
}

// Delete removes a value from the cache by the provided key.
func (c *LRUCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Delete(key)
}

// Clear removes all entries from the cache.
// Keep in mind that statistics and Prometheus metrics are not reset except for the total number of entries.
// All removed entries will not be counted as evictions.
func (c *LRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Clear()
}

// Len returns the number of live entries in the cache.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}

// Keys returns the keys of live entries, the most recently used first.
func (c *LRUCache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Keys()
}

// CleanupExpired removes all expired entries and returns their number.
func (c *LRUCache[K, V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.CleanupExpired()
}

// Stats returns a snapshot of usage counters.
func (c *LRUCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Stats()
}

// StatsWithLen returns usage counters together with the number of live entries.
// Both values are taken under one lock, so expirations found while counting are already in the stats.
func (c *LRUCache[K, V]) StatsWithLen() (Stats, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.cache.Len()
	return c.cache.Stats(), n
}

// RunPeriodicCleanup runs a cycle of periodic cleanup of expired entries.
// Entries without expiration time are not affected.
// It's supposed to be run in a separate goroutine and returns when the context is done.
func (c *LRUCache[K, V]) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanupExpired()
		}
	}
}
