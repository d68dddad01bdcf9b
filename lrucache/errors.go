/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import "errors"

// ErrInvalidCapacity is returned when a cache is constructed with capacity less than 1.
var ErrInvalidCapacity = errors.New("capacity must be greater than 0")

// ErrInvalidTTL is returned when a non-positive TTL is passed to the cache.
// Use NoExpiration for entries that never expire.
var ErrInvalidTTL = errors.New("ttl must be greater than 0 or NoExpiration")

// ErrInvalidKey is returned when a key cannot be hashed or compared,
// e.g. a slice stored in a key of an interface type.
var ErrInvalidKey = errors.New("key is not comparable")
