/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-lrucache/lrucache"
	"github.com/acronis/go-lrucache/restapi"
	"github.com/acronis/go-lrucache/testutil"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestRouter(t *testing.T, capacity int, opts HandlerOpts) (chi.Router, *lrucache.LRUCache[string, []byte], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache, err := lrucache.NewWithOpts[string, []byte](capacity, nil, lrucache.Options[string, []byte]{Clock: clock.Now})
	require.NoError(t, err)
	router := chi.NewRouter()
	NewHandler(cache, opts).Routes(router)
	return router, cache, clock
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHandler_PutAndGet(t *testing.T) {
	router, cache, clock := newTestRouter(t, 2, HandlerOpts{})

	resp := serve(router, http.MethodPut, "/entries/user:1", "Bob")
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = serve(router, http.MethodGet, "/entries/user:1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "Bob", resp.Body.String())

	// Empty value is distinct from absent one.
	resp = serve(router, http.MethodPut, "/entries/empty", "")
	require.Equal(t, http.StatusNoContent, resp.Code)
	resp = serve(router, http.MethodGet, "/entries/empty", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, resp.Body.String())

	resp = serve(router, http.MethodGet, "/entries/missing", "")
	testutil.RequireErrorInRecorder(t, resp, http.StatusNotFound, ErrorDomain, ErrCodeNotFound)

	// "user:1" is the LRU entry and gets evicted.
	resp = serve(router, http.MethodPut, "/entries/user:2", "John")
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, []string{"user:2", "empty"}, cache.Keys())

	resp = serve(router, http.MethodPut, "/entries/short?ttl=1s", "x")
	require.Equal(t, http.StatusNoContent, resp.Code)
	clock.now = clock.now.Add(time.Second)
	resp = serve(router, http.MethodGet, "/entries/short", "")
	testutil.RequireErrorInRecorder(t, resp, http.StatusNotFound, ErrorDomain, ErrCodeNotFound)
}

func TestHandler_EscapedKey(t *testing.T) {
	router, cache, _ := newTestRouter(t, 10, HandlerOpts{})

	resp := serve(router, http.MethodPut, "/entries/a%2Fb", "slash")
	require.Equal(t, http.StatusNoContent, resp.Code)
	val, ok := cache.Peek("a/b")
	require.True(t, ok)
	require.Equal(t, []byte("slash"), val)

	resp = serve(router, http.MethodGet, "/entries/a%2Fb", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "slash", resp.Body.String())
}

func TestHandler_InvalidTTL(t *testing.T) {
	router, cache, _ := newTestRouter(t, 10, HandlerOpts{})
	for _, ttl := range []string{"-1s", "0s", "abc"} {
		resp := serve(router, http.MethodPut, "/entries/k?ttl="+ttl, "v")
		testutil.RequireErrorInRecorder(t, resp, http.StatusBadRequest, ErrorDomain, ErrCodeInvalidTTL)
	}
	require.Equal(t, 0, cache.Len())

	resp := serve(router, http.MethodPut, "/entries/k?ttl=never", "v")
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.True(t, cache.Contains("k"))
}

func TestHandler_TooLargeValue(t *testing.T) {
	router, cache, _ := newTestRouter(t, 10, HandlerOpts{MaxValueSize: 4})
	resp := serve(router, http.MethodPut, "/entries/k", "12345")
	testutil.RequireErrorInRecorder(t, resp, http.StatusRequestEntityTooLarge, ErrorDomain, "requestEntityTooLarge")
	require.Equal(t, 0, cache.Len())
}

func TestHandler_DeleteAndClear(t *testing.T) {
	router, cache, _ := newTestRouter(t, 10, HandlerOpts{})
	require.NoError(t, cache.Put("a", []byte("1")))
	require.NoError(t, cache.Put("b", []byte("2")))

	resp := serve(router, http.MethodDelete, "/entries/a", "")
	require.Equal(t, http.StatusNoContent, resp.Code)
	resp = serve(router, http.MethodDelete, "/entries/a", "")
	testutil.RequireErrorInRecorder(t, resp, http.StatusNotFound, ErrorDomain, restapi.ErrCodeNotFound)

	resp = serve(router, http.MethodDelete, "/entries", "")
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, 0, cache.Len())
}

func TestHandler_KeysStatsCleanup(t *testing.T) {
	router, cache, clock := newTestRouter(t, 10, HandlerOpts{})
	require.NoError(t, cache.Put("a", []byte("1")))
	require.NoError(t, cache.PutWithTTL("b", []byte("2"), time.Minute))
	require.NoError(t, cache.Put("c", []byte("3")))
	_, _ = cache.Get("a")
	_, _ = cache.Get("missing")

	resp := serve(router, http.MethodGet, "/keys", "")
	testutil.RequireJSONInRecorder(t, resp, &KeysResponse{Keys: []string{"a", "c", "b"}}, &KeysResponse{})

	clock.now = clock.now.Add(time.Minute)
	resp = serve(router, http.MethodPost, "/cleanup", "")
	testutil.RequireJSONInRecorder(t, resp, &CleanupResponse{Removed: 1}, &CleanupResponse{})

	resp = serve(router, http.MethodGet, "/stats", "")
	testutil.RequireJSONInRecorder(t, resp, &StatsResponse{
		Hits:        1,
		Misses:      1,
		Puts:        3,
		Expirations: 1,
		Requests:    2,
		HitRatio:    0.5,
		Size:        2,
		Capacity:    10,
	}, &StatsResponse{})
}

func TestHandler_StatsCountExpiredEntries(t *testing.T) {
	router, cache, clock := newTestRouter(t, 10, HandlerOpts{})
	require.NoError(t, cache.PutWithTTL("a", []byte("1"), time.Second))
	require.NoError(t, cache.PutWithTTL("b", []byte("2"), time.Second))
	require.NoError(t, cache.Put("c", []byte("3")))

	// Entries expired since the last access are swept while the stats are taken.
	clock.now = clock.now.Add(time.Second)
	resp := serve(router, http.MethodGet, "/stats", "")
	testutil.RequireJSONInRecorder(t, resp, &StatsResponse{
		Puts:        3,
		Expirations: 2,
		Size:        1,
		Capacity:    10,
	}, &StatsResponse{})
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		value          string
		wantTTL        time.Duration
		wantUseDefault bool
		wantErr        bool
	}{
		{value: "", wantUseDefault: true},
		{value: "never", wantTTL: lrucache.NoExpiration},
		{value: "1m30s", wantTTL: 90 * time.Second},
		{value: "0", wantErr: true},
		{value: "-5s", wantErr: true},
		{value: "forever", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			ttl, useDefault, err := ParseTTL(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantTTL, ttl)
			require.Equal(t, tt.wantUseDefault, useDefault)
			require.Equal(t, tt.value, FormatTTL(ttl, useDefault))
		})
	}
}
