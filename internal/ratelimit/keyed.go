/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"

	"github.com/acronis/go-lrucache/lrucache"
)

// limiterByKey returns a function that looks up (or lazily creates) the limiter state for a key.
// States are kept in an LRU cache of maxKeys entries, so the least recently limited keys are forgotten first.
// With zero maxKeys every key shares the same state.
func limiterByKey[T any](maxKeys int, newState func() T) (func(key string) T, error) {
	if maxKeys == 0 {
		shared := newState()
		return func(string) T { return shared }, nil
	}
	states, err := lrucache.New[string, T](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU cache for limiter states: %w", err)
	}
	return func(key string) T {
		st, _, _ := states.GetOrAdd(key, newState) // string keys are always valid
		return st
	}, nil
}
