/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"fmt"
	"math"
	"reflect"
	"time"
)

// NoExpiration is a TTL value meaning that the entry never expires.
const NoExpiration time.Duration = math.MaxInt64

// computeExpiry returns the absolute expiration instant for the given TTL.
// Zero time is returned for NoExpiration.
func computeExpiry(ttl time.Duration, now time.Time) (time.Time, error) {
	if ttl == NoExpiration {
		return time.Time{}, nil
	}
	if ttl <= 0 {
		return time.Time{}, fmt.Errorf("%w, got %s", ErrInvalidTTL, ttl)
	}
	return now.Add(ttl), nil
}

// isLive reports whether an entry with the given expiration instant is still visible at now.
// An entry expiring exactly at now is considered expired.
func isLive(expiresAt, now time.Time) bool {
	return expiresAt.IsZero() || now.Before(expiresAt)
}

// normalizeDefaultTTL maps the zero value of Options.DefaultTTL to NoExpiration.
func normalizeDefaultTTL(ttl time.Duration) (time.Duration, error) {
	if ttl < 0 {
		return 0, fmt.Errorf("%w, got %s for default ttl", ErrInvalidTTL, ttl)
	}
	if ttl == 0 {
		return NoExpiration, nil
	}
	return ttl, nil
}

// keyNeedsHashCheck reports whether values of K may hold non-comparable dynamic types.
// Map access can fail only when an interface is reachable through struct fields or array elements.
func keyNeedsHashCheck[K comparable]() bool {
	return typeHasInterface(reflect.TypeOf((*K)(nil)).Elem())
}

func typeHasInterface(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Array:
		return typeHasInterface(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if typeHasInterface(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

func isHashable[K comparable](key K) bool {
	v := reflect.ValueOf(any(key))
	return !v.IsValid() || v.Comparable()
}
