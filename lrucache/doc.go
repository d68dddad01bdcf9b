/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides in-memory cache with LRU eviction policy, per-entry expiration, and Prometheus metrics.
//
// Cache is the single-goroutine core: a hash index over an arena-backed doubly linked list,
// which keeps get, put and delete O(1). LRUCache wraps it with a single mutex.
//
// Expired entries are removed lazily by the operations touching them.
// Len and Keys sweep all expired entries before answering.
// CleanupExpired (or LRUCache.RunPeriodicCleanup) can be used to bound memory
// when many entries are written once and never read again.
// Eviction always removes the least recently used entry, remaining TTL is not taken into account.
package lrucache
