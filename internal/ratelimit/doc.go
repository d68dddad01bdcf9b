/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides limiters of the request rate used by the HTTP server middleware.
//
// Three algorithms are supported:
//   - token bucket (golang.org/x/time/rate)
//   - leaky bucket, the GCRA variant (github.com/throttled/throttled/v2)
//   - sliding window (github.com/RussellLuo/slidingwindow)
//
// Every limiter may keep a separate state per key (e.g. per client IP).
// Keys are held in a bounded LRU cache, so the least recently seen ones are forgotten first.
package ratelimit
