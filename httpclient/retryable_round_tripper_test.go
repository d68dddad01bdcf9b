/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-lrucache/retry"
)

func TestRetryableRoundTripper(t *testing.T) {
	fastPolicy := retry.NewConstantBackoffPolicy(time.Millisecond, 0)

	t.Run("retries 5xx and keeps the body", func(t *testing.T) {
		var calls atomic.Int32
		var mu sync.Mutex
		var bodies []string
		var attemptHeaders []string
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			body, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(body))
			attemptHeaders = append(attemptHeaders, r.Header.Get(RetryAttemptNumberHeader))
			if calls.Inc() < 3 {
				rw.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			rw.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{BackoffPolicy: fastPolicy})
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPut, server.URL, strings.NewReader("payload"))
		require.NoError(t, err)
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, int32(3), calls.Load())
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []string{"payload", "payload", "payload"}, bodies)
		require.Equal(t, []string{"", "1", "2"}, attemptHeaders)
		require.Empty(t, req.Header.Get(RetryAttemptNumberHeader))
	})

	t.Run("non-seekable body is buffered", func(t *testing.T) {
		var mu sync.Mutex
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			body, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(body))
			if len(bodies) == 1 {
				rw.WriteHeader(http.StatusInternalServerError)
				return
			}
			rw.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{BackoffPolicy: fastPolicy})
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPost, server.URL, io.NopCloser(bytes.NewBufferString("data")))
		require.NoError(t, err)
		req.GetBody = nil
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []string{"data", "data"}, bodies)
	})

	t.Run("seekable body is rewound to its initial offset", func(t *testing.T) {
		var mu sync.Mutex
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			mu.Lock()
			defer mu.Unlock()
			body, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(body))
			if len(bodies) == 1 {
				rw.WriteHeader(http.StatusBadGateway)
				return
			}
			rw.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{BackoffPolicy: fastPolicy})
		require.NoError(t, err)
		body := seekableBody{strings.NewReader("skip:value")}
		_, err = body.Seek(int64(len("skip:")), io.SeekStart)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPut, server.URL, body)
		require.NoError(t, err)
		req.ContentLength = int64(len("value"))
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, []string{"value", "value"}, bodies)
	})

	t.Run("max attempts exceeded", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			calls.Inc()
			rw.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
			BackoffPolicy:    fastPolicy,
			MaxRetryAttempts: 2,
		})
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		require.Equal(t, int32(3), calls.Load())
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			calls.Inc()
			rw.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		rt, err := NewRetryableRoundTripper(http.DefaultTransport)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Equal(t, int32(1), calls.Load())
	})

	t.Run("context canceled while waiting", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Retry-After", "60")
			rw.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		rt, err := NewRetryableRoundTripper(http.DefaultTransport)
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		start := time.Now()
		_, err = rt.RoundTrip(req) //nolint:bodyclose // Body is drained by the round tripper.
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Less(t, time.Since(start), 10*time.Second)
	})

	t.Run("invalid max attempts", func(t *testing.T) {
		_, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{MaxRetryAttempts: -2})
		require.Error(t, err)
	})
}

type seekableBody struct {
	*strings.Reader
}

func (seekableBody) Close() error { return nil }

func TestParseRetryAfterFromResponse(t *testing.T) {
	tests := []struct {
		value  string
		wantOK bool
		want   time.Duration
	}{
		{value: "", wantOK: false},
		{value: "5", wantOK: true, want: 5 * time.Second},
		{value: "-1", wantOK: false},
		{value: "soon", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(strconv.Quote(tt.value), func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			resp.Header.Set("Retry-After", tt.value)
			got, ok := parseRetryAfterFromResponse(resp)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", time.Now().Add(time.Minute).UTC().Format(http.TimeFormat))
	got, ok := parseRetryAfterFromResponse(resp)
	require.True(t, ok)
	require.InDelta(t, float64(time.Minute), float64(got), float64(2*time.Second))
}
