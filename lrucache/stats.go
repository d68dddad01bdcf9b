/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

// Stats is a snapshot of cache usage counters.
// All counters grow monotonically for the lifetime of the cache, Clear does not reset them.
type Stats struct {
	// Hits is the number of Get calls that found a live entry.
	Hits uint64 `json:"hits"`
	// Misses is the number of Get calls that found nothing (never stored, expired, evicted or deleted).
	Misses uint64 `json:"misses"`
	// Puts is the number of successful Put calls, both inserts and updates.
	Puts uint64 `json:"puts"`
	// Evictions is the number of entries removed to keep the cache within its capacity.
	Evictions uint64 `json:"evictions"`
	// Expirations is the number of expired entries removed lazily or by CleanupExpired.
	Expirations uint64 `json:"expirations"`
}

// HitRatio returns hits / (hits + misses), or 0 if no Get calls were issued.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Requests returns the total number of Get calls.
func (s Stats) Requests() uint64 {
	return s.Hits + s.Misses
}
