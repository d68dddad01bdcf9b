/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/acronis/go-lrucache/internal/ratelimit"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/restapi"
)

// DefaultRateLimitMaxKeys is a default value of maximum keys number for the RateLimit middleware.
const DefaultRateLimitMaxKeys = 10000

// RateLimitLogFieldKey it is the name of the logged field that contains a key for the requests rate limiter.
const RateLimitLogFieldKey = "rate_limit_key"

// RateLimitAlg is an algorithm used by the RateLimit middleware.
type RateLimitAlg string

// Rate limiting algorithms.
const (
	RateLimitAlgTokenBucket   = RateLimitAlg(ratelimit.AlgTokenBucket)
	RateLimitAlgLeakyBucket   = RateLimitAlg(ratelimit.AlgLeakyBucket)
	RateLimitAlgSlidingWindow = RateLimitAlg(ratelimit.AlgSlidingWindow)
)

// RateLimitGetKeyFunc is a function that is called for getting key for rate limiting.
// If bypass is true, the request is not limited.
type RateLimitGetKeyFunc func(r *http.Request) (key string, bypass bool)

// RateLimitOpts represents an options for the RateLimit middleware.
type RateLimitOpts struct {
	// Alg is the rate limiting algorithm. RateLimitAlgTokenBucket is used if not set.
	Alg RateLimitAlg

	// MaxBurst is the maximum number of requests that may be served at once. It's 1 if not set.
	MaxBurst int

	// GetKey enables a separate limiter state per key (e.g. per client IP).
	// States are kept in an LRU cache of MaxKeys entries.
	GetKey  RateLimitGetKeyFunc
	MaxKeys int
}

type rateLimitHandler struct {
	next      http.Handler
	errDomain string
	limiter   ratelimit.Limiter
	getKey    RateLimitGetKeyFunc
}

// RateLimit is a middleware that limits the rate of HTTP requests.
// Requests over the limit are rejected with 429 and Retry-After header.
func RateLimit(rps float64, errDomain string) (func(next http.Handler) http.Handler, error) {
	return RateLimitWithOpts(rps, errDomain, RateLimitOpts{})
}

// MustRateLimit is a version of RateLimit that panics if an error occurs.
func MustRateLimit(rps float64, errDomain string) func(next http.Handler) http.Handler {
	mw, err := RateLimit(rps, errDomain)
	if err != nil {
		panic(err)
	}
	return mw
}

// RateLimitWithOpts is a configurable version of a middleware to limit the rate of HTTP requests.
func RateLimitWithOpts(rps float64, errDomain string, opts RateLimitOpts) (func(next http.Handler) http.Handler, error) {
	if rps <= 0 {
		return nil, fmt.Errorf("rate limit should be positive, got %v", rps)
	}
	maxKeys := 0
	if opts.GetKey != nil {
		maxKeys = opts.MaxKeys
		if maxKeys <= 0 {
			maxKeys = DefaultRateLimitMaxKeys
		}
	}
	limiter, err := ratelimit.NewLimiter(ratelimit.Alg(opts.Alg), ratelimit.RateFromRPS(rps), opts.MaxBurst, maxKeys)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}
	return func(next http.Handler) http.Handler {
		return &rateLimitHandler{next: next, errDomain: errDomain, limiter: limiter, getKey: opts.GetKey}
	}, nil
}

func (h *rateLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	key := ""
	if h.getKey != nil {
		var bypass bool
		if key, bypass = h.getKey(r); bypass {
			h.next.ServeHTTP(rw, r)
			return
		}
	}

	allow, retryAfter, err := h.limiter.Allow(r.Context(), key)
	if err != nil {
		logger := GetLoggerFromContext(r.Context())
		if logger != nil {
			logger.Error("rate limiting error", log.String(RateLimitLogFieldKey, key), log.Error(err))
		}
		restapi.RespondInternalError(rw, h.errDomain, logger)
		return
	}
	if !allow {
		h.reject(rw, r, key, retryAfter)
		return
	}
	h.next.ServeHTTP(rw, r)
}

func (h *rateLimitHandler) reject(rw http.ResponseWriter, r *http.Request, key string, retryAfter time.Duration) {
	logger := GetLoggerFromContext(r.Context())
	if logger != nil {
		logger = logger.With(log.String(RateLimitLogFieldKey, key))
		logger.Warn("rate limit exceeded", log.Duration("retry_after", retryAfter))
	}
	rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	restapi.RespondError(rw, http.StatusTooManyRequests,
		restapi.NewError(h.errDomain, restapi.ErrCodeTooManyRequests, restapi.ErrMessageTooManyRequests), logger)
}

// RateLimitGetKeyByIP is a RateLimitGetKeyFunc that limits requests per client IP.
func RateLimitGetKeyByIP(r *http.Request) (key string, bypass bool) {
	if originAddr := getOriginAddr(r); originAddr != "" {
		return originAddr, false
	}
	return remoteIP(r), false
}
