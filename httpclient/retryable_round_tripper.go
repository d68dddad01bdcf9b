/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/retry"
)

// Default parameter values for RetryableRoundTripper.
const (
	DefaultMaxRetryAttempts                  = 10
	DefaultExponentialBackoffInitialInterval = 100 * time.Millisecond
	DefaultExponentialBackoffMultiplier      = 2
)

// UnlimitedRetryAttempts as RetryableRoundTripperOpts.MaxRetryAttempts leaves stopping retries to the backoff policy.
const UnlimitedRetryAttempts = -1

// RetryAttemptNumberHeader carries the number of the retry attempt. The first request doesn't have it.
const RetryAttemptNumberHeader = "X-Retry-Attempt"

// CheckRetryFunc decides after every attempt whether the request should be sent again.
type CheckRetryFunc func(ctx context.Context, resp *http.Response, roundTripErr error, doneRetryAttempts int) (bool, error)

// DefaultBackoffPolicy is used when RetryableRoundTripperOpts.BackoffPolicy is nil.
var DefaultBackoffPolicy retry.Policy = retry.ExponentialBackoffPolicy{
	InitialInterval: DefaultExponentialBackoffInitialInterval,
	Multiplier:      DefaultExponentialBackoffMultiplier,
}

// RetryableRoundTripper is an http.RoundTripper that resends requests failed with a retryable error or status.
// The wait time between attempts is taken from Retry-After or computed by BackoffPolicy.
type RetryableRoundTripper struct {
	Delegate         http.RoundTripper
	LoggerProvider   func(ctx context.Context) log.FieldLogger
	MaxRetryAttempts int // the request is sent at most MaxRetryAttempts+1 times
	CheckRetry       CheckRetryFunc
	IgnoreRetryAfter bool
	BackoffPolicy    retry.Policy
}

// RetryableRoundTripperOpts represents options for RetryableRoundTripper. Zero values select defaults:
// logger from the request context, DefaultMaxRetryAttempts, DefaultCheckRetry and DefaultBackoffPolicy.
type RetryableRoundTripperOpts struct {
	LoggerProvider   func(ctx context.Context) log.FieldLogger
	MaxRetryAttempts int
	CheckRetryFunc   CheckRetryFunc
	IgnoreRetryAfter bool
	BackoffPolicy    retry.Policy
}

// NewRetryableRoundTripper creates a RetryableRoundTripper with default options.
func NewRetryableRoundTripper(delegate http.RoundTripper) (*RetryableRoundTripper, error) {
	return NewRetryableRoundTripperWithOpts(delegate, RetryableRoundTripperOpts{})
}

// NewRetryableRoundTripperWithOpts creates a RetryableRoundTripper with the given options.
func NewRetryableRoundTripperWithOpts(
	delegate http.RoundTripper, opts RetryableRoundTripperOpts,
) (*RetryableRoundTripper, error) {
	rt := &RetryableRoundTripper{
		Delegate:         delegate,
		LoggerProvider:   opts.LoggerProvider,
		MaxRetryAttempts: opts.MaxRetryAttempts,
		CheckRetry:       opts.CheckRetryFunc,
		IgnoreRetryAfter: opts.IgnoreRetryAfter,
		BackoffPolicy:    opts.BackoffPolicy,
	}
	switch {
	case rt.MaxRetryAttempts == 0:
		rt.MaxRetryAttempts = DefaultMaxRetryAttempts
	case rt.MaxRetryAttempts < 0 && rt.MaxRetryAttempts != UnlimitedRetryAttempts:
		return nil, fmt.Errorf("incorrect max retry attempts %d", rt.MaxRetryAttempts)
	}
	if rt.LoggerProvider == nil {
		rt.LoggerProvider = loggerFromContext
	}
	if rt.CheckRetry == nil {
		rt.CheckRetry = DefaultCheckRetry
	}
	if rt.BackoffPolicy == nil {
		rt.BackoffPolicy = DefaultBackoffPolicy
	}
	return rt, nil
}

// RoundTrip sends the request and retries it while CheckRetry allows.
// The original request is never modified, its body is closed when RoundTrip returns.
func (rt *RetryableRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	logger := rt.LoggerProvider(ctx)

	rewind := bodyRewinder(func(*http.Request) error { return nil })
	if req.Body != nil && req.Body != http.NoBody {
		defer func(body io.Closer) { _ = body.Close() }(req.Body)
		req = req.Clone(ctx)
		var err error
		if rewind, err = makeRequestBodyRewindable(req); err != nil {
			return nil, &RetryableRoundTripperError{Inner: err}
		}
	}

	bo := rt.BackoffPolicy.NewBackOff()
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := rewind(req); err != nil {
				return nil, &RetryableRoundTripperError{Inner: fmt.Errorf("rewind body after %d request(s): %w", attempt, err)}
			}
			if attempt == 1 {
				req = req.Clone(ctx) // headers of the caller's request stay untouched
			}
			req.Header.Set(RetryAttemptNumberHeader, strconv.Itoa(attempt))
		}

		resp, rtErr := rt.Delegate.RoundTrip(req)
		wait, again := rt.shouldRetry(ctx, logger, bo, resp, rtErr, attempt)
		if !again {
			return resp, rtErr
		}
		if rtErr == nil && resp != nil {
			drainResponseBody(resp, logger)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warnf("context is done while waiting for retry, %d request(s) sent: %v", attempt+1, ctx.Err())
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// shouldRetry returns the wait time before the next attempt, if there should be one.
func (rt *RetryableRoundTripper) shouldRetry(
	ctx context.Context, logger log.FieldLogger, bo backoff.BackOff, resp *http.Response, rtErr error, attempt int,
) (time.Duration, bool) {
	needRetry, err := rt.CheckRetry(ctx, resp, rtErr, attempt)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to check if retry is needed, %d request(s) sent", attempt+1), log.Error(err))
		return 0, false
	}
	if !needRetry {
		return 0, false
	}
	if rt.MaxRetryAttempts != UnlimitedRetryAttempts && attempt >= rt.MaxRetryAttempts {
		logger.Warnf("max retry attempts (%d) exceeded, %d request(s) sent", rt.MaxRetryAttempts, attempt+1)
		return 0, false
	}
	if resp != nil && !rt.IgnoreRetryAfter {
		if wait, ok := parseRetryAfterFromResponse(resp); ok {
			return wait, true
		}
	}
	wait := bo.NextBackOff()
	return wait, wait != backoff.Stop
}

// RetryableRoundTripperError is returned when the request cannot be prepared for resending.
type RetryableRoundTripperError struct {
	Inner error
}

func (e *RetryableRoundTripperError) Error() string {
	return "retryable round trip: " + e.Inner.Error()
}

// Unwrap returns the next error in the error chain.
func (e *RetryableRoundTripperError) Unwrap() error {
	return e.Inner
}

// DefaultCheckRetry retries temporary network errors, 429 and 5xx responses unless the context is done.
func DefaultCheckRetry(ctx context.Context, resp *http.Response, roundTripErr error, _ int) (bool, error) {
	switch {
	case ctx.Err() != nil:
		return false, nil
	case roundTripErr != nil:
		return CheckErrorIsTemporary(roundTripErr), nil
	case resp == nil:
		return false, errors.New("both response and round trip error are nil")
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError, nil
}

// CheckErrorIsTemporary reports whether the request may succeed if sent again.
// Refused connections count as temporary since the server may be starting up.
func CheckErrorIsTemporary(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var tempErr interface{ Temporary() bool }
	return errors.As(err, &tempErr) && tempErr.Temporary()
}

// parseRetryAfterFromResponse supports both delay-seconds and HTTP-date forms of Retry-After.
func parseRetryAfterFromResponse(resp *http.Response) (time.Duration, bool) {
	val := resp.Header.Get("Retry-After")
	if val == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(val); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	at, err := http.ParseTime(val)
	if err != nil {
		return 0, false
	}
	return time.Until(at), true
}
