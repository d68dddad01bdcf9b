/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"fmt"
	"time"
)

// Options represents options for the cache.
type Options[K comparable, V any] struct {
	// DefaultTTL is the TTL applied by Put.
	// Zero value and NoExpiration both mean that entries never expire. Negative value is an error.
	// Please note that expired entries are not removed immediately,
	// but only when they are accessed or during cleanup (see CleanupExpired and LRUCache.RunPeriodicCleanup).
	DefaultTTL time.Duration

	// Clock returns the current time. time.Now is used if nil.
	Clock func() time.Time

	// OnEvict is called for every entry removed because the cache is full.
	// It is not called for deleted, expired or cleared entries.
	// For LRUCache it is called while the lock is held, so it must not call the cache.
	OnEvict func(key K, value V)
}

// Cache is an LRU cache with per-entry expiration.
// All operations except Len, Keys and CleanupExpired are O(1).
//
// Cache is not safe for concurrent use, see LRUCache for the thread-safe variant.
type Cache[K comparable, V any] struct {
	capacity   int
	defaultTTL time.Duration

	index map[K]int32 // key -> arena slot in list
	list  *recencyList[K, V]

	// withTTL is the number of entries having an expiration instant.
	// Full sweeps are skipped when it is zero.
	withTTL int

	stats            Stats
	metricsCollector MetricsCollector

	now          func() time.Time
	onEvict      func(key K, value V)
	checkKeyHash bool
}

// NewCache creates a new Cache with the given capacity and no expiration by default.
func NewCache[K comparable, V any](capacity int) (*Cache[K, V], error) {
	return NewCacheWithOpts[K, V](capacity, Options[K, V]{})
}

// NewCacheWithOpts creates a new Cache with the given capacity and options.
func NewCacheWithOpts[K comparable, V any](capacity int, opts Options[K, V]) (*Cache[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCapacity, capacity)
	}
	defaultTTL, err := normalizeDefaultTTL(opts.DefaultTTL)
	if err != nil {
		return nil, err
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Cache[K, V]{
		capacity:         capacity,
		defaultTTL:       defaultTTL,
		index:            make(map[K]int32, capacity),
		list:             newRecencyList[K, V](capacity),
		metricsCollector: disabledMetricsCollector,
		now:              now,
		onEvict:          opts.OnEvict,
		checkKeyHash:     keyNeedsHashCheck[K](),
	}, nil
}

// Capacity returns the maximum number of entries the cache may hold.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// DefaultTTL returns the TTL used by Put. NoExpiration is returned if entries never expire by default.
func (c *Cache[K, V]) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Put adds or updates the entry using the default TTL.
func (c *Cache[K, V]) Put(key K, value V) error {
	return c.PutWithTTL(key, value, c.defaultTTL)
}

// PutWithTTL adds or updates the entry with the given TTL and marks it as the most recently used.
// If the key is new and the cache is full, the least recently used entry is evicted first.
// On error the cache is left unchanged.
func (c *Cache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) error {
	if !c.validKey(key) {
		return ErrInvalidKey
	}
	now := c.now()
	expiresAt, err := computeExpiry(ttl, now)
	if err != nil {
		return err
	}

	if slot, ok := c.lookupLive(key, now); ok {
		n := &c.list.nodes[slot]
		c.withTTL += ttlDelta(n.expiresAt, expiresAt)
		n.value = value
		n.expiresAt = expiresAt
		c.moveToHead(slot)
	} else {
		if len(c.index) >= c.capacity {
			c.evictTail()
		}
		c.insertAtHead(key, value, expiresAt)
	}

	c.stats.Puts++
	c.metricsCollector.IncPuts()
	c.metricsCollector.SetAmount(len(c.index))
	return nil
}

// Get returns the value stored by the key and marks the entry as the most recently used.
// Expired entries are removed and reported as absent.
func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	if !c.validKey(key) {
		c.recordMiss()
		return value, false
	}
	slot, ok := c.lookupLive(key, c.now())
	if !ok {
		c.recordMiss()
		return value, false
	}
	c.moveToHead(slot)
	c.stats.Hits++
	c.metricsCollector.IncHits()
	return c.list.nodes[slot].value, true
}

// Peek returns the value stored by the key without updating recency or hit/miss counters.
func (c *Cache[K, V]) Peek(key K) (value V, ok bool) {
	if !c.validKey(key) {
		return value, false
	}
	slot, ok := c.lookupLive(key, c.now())
	if !ok {
		return value, false
	}
	return c.list.nodes[slot].value, true
}

// Contains reports whether a live entry exists for the key without updating recency.
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.Peek(key)
	return ok
}

// Delete removes the entry and reports whether a live entry was removed.
// Deleting an absent or already expired key returns false.
func (c *Cache[K, V]) Delete(key K) bool {
	if !c.validKey(key) {
		return false
	}
	slot, ok := c.lookupLive(key, c.now())
	if !ok {
		return false
	}
	c.remove(slot)
	c.metricsCollector.SetAmount(len(c.index))
	return true
}

// Clear removes all entries. Counters are not reset and removed entries are not counted as evictions.
func (c *Cache[K, V]) Clear() {
	clear(c.index)
	c.list.init()
	c.withTTL = 0
	c.metricsCollector.SetAmount(0)
}

// Len returns the number of live entries.
// Expired entries are swept first, so the result agrees with what Get would report.
func (c *Cache[K, V]) Len() int {
	c.sweep(c.now())
	return len(c.index)
}

// Keys returns the keys of live entries ordered from the most to the least recently used.
// Expired entries are swept first.
func (c *Cache[K, V]) Keys() []K {
	c.sweep(c.now())
	keys := make([]K, 0, len(c.index))
	for slot := c.list.front(); slot != noSlot; slot = c.list.nextOf(slot) {
		keys = append(keys, c.list.nodes[slot].key)
	}
	return keys
}

// CleanupExpired removes all expired entries and returns their number.
// Entries without expiration are not affected.
func (c *Cache[K, V]) CleanupExpired() int {
	return c.sweep(c.now())
}

// Stats returns a snapshot of usage counters.
func (c *Cache[K, V]) Stats() Stats {
	return c.stats
}

func (c *Cache[K, V]) sweep(now time.Time) int {
	if c.withTTL == 0 {
		return 0
	}
	removed := 0
	for slot := c.list.back(); slot != noSlot; {
		prev := c.list.prevOf(slot)
		if !isLive(c.list.nodes[slot].expiresAt, now) {
			c.remove(slot)
			removed++
		}
		slot = prev
	}
	if removed > 0 {
		c.recordExpirations(removed)
		c.metricsCollector.SetAmount(len(c.index))
	}
	return removed
}

// lookupLive finds the entry and also removes it if it has expired.
func (c *Cache[K, V]) lookupLive(key K, now time.Time) (int32, bool) {
	slot, ok := c.lookup(key)
	if !ok {
		return noSlot, false
	}
	if !isLive(c.list.nodes[slot].expiresAt, now) {
		c.remove(slot)
		c.recordExpirations(1)
		c.metricsCollector.SetAmount(len(c.index))
		return noSlot, false
	}
	return slot, true
}

// lookup never changes recency order.
func (c *Cache[K, V]) lookup(key K) (int32, bool) {
	slot, ok := c.index[key]
	return slot, ok
}

// insertAtHead must not be called for a key that is already present.
func (c *Cache[K, V]) insertAtHead(key K, value V, expiresAt time.Time) int32 {
	if _, exists := c.index[key]; exists {
		panic(fmt.Sprintf("lrucache: insertAtHead called for existing key %v", key))
	}
	slot := c.list.pushFront(key, value, expiresAt)
	c.index[key] = slot
	if !expiresAt.IsZero() {
		c.withTTL++
	}
	return slot
}

func (c *Cache[K, V]) remove(slot int32) node[K, V] {
	n := c.list.unlink(slot)
	delete(c.index, n.key)
	if !n.expiresAt.IsZero() {
		c.withTTL--
	}
	return n
}

func (c *Cache[K, V]) moveToHead(slot int32) {
	c.list.moveToFront(slot)
}

// evictTail removes the least recently used entry regardless of its TTL.
// It returns false if the cache is empty.
func (c *Cache[K, V]) evictTail() (key K, value V, ok bool) {
	slot := c.list.back()
	if slot == noSlot {
		return key, value, false
	}
	n := c.remove(slot)
	c.stats.Evictions++
	c.metricsCollector.AddEvictions(1)
	if c.onEvict != nil {
		c.onEvict(n.key, n.value)
	}
	return n.key, n.value, true
}

func (c *Cache[K, V]) recordMiss() {
	c.stats.Misses++
	c.metricsCollector.IncMisses()
}

func (c *Cache[K, V]) recordExpirations(n int) {
	c.stats.Expirations += uint64(n) //nolint:gosec // n is never negative
	c.metricsCollector.AddExpirations(n)
}

func (c *Cache[K, V]) validKey(key K) bool {
	return !c.checkKeyHash || isHashable(key)
}

// ttlDelta returns the change of withTTL when an entry's expiration is replaced.
func ttlDelta(oldExpiresAt, newExpiresAt time.Time) int {
	switch {
	case oldExpiresAt.IsZero() && !newExpiresAt.IsZero():
		return 1
	case !oldExpiresAt.IsZero() && newExpiresAt.IsZero():
		return -1
	}
	return 0
}
