/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/log/logtest"
)

type mockLoggingNextHandler struct {
	respStatusCode int
	respBody       []byte
	gotLogger      log.FieldLogger
}

func (h *mockLoggingNextHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	h.gotLogger = GetLoggerFromContext(r.Context())
	rw.WriteHeader(h.respStatusCode)
	_, _ = rw.Write(h.respBody)
}

func TestLoggingHandler_ServeHTTP(t *testing.T) {
	t.Run("request and response are logged", func(t *testing.T) {
		logger := logtest.NewRecorder()
		next := &mockLoggingNextHandler{respStatusCode: http.StatusCreated, respBody: []byte("hello")}

		req := httptest.NewRequest(http.MethodPut, "/entries/k?ttl=10s", strings.NewReader("v"))
		req.RemoteAddr = "10.0.0.1:54321"
		req.Header.Set(headerForwardedFor, "203.0.113.7, 10.0.0.1")
		req = req.WithContext(NewContextWithRequestID(req.Context(), "ext-id"))
		resp := httptest.NewRecorder()
		LoggingWithOpts(logger, LoggingOpts{RequestStart: true})(next).ServeHTTP(resp, req)

		require.NotNil(t, next.gotLogger)
		require.Len(t, logger.Entries(), 2)

		startEntry, found := logger.FindEntry("request started")
		require.True(t, found)
		requireLogFieldString(t, startEntry, "method", http.MethodPut)

		entry, found := logger.FindEntryByFilter(func(e logtest.RecordedEntry) bool {
			return strings.HasPrefix(e.Text, "response completed in ")
		})
		require.True(t, found)
		require.Equal(t, log.LevelInfo, entry.Level)
		requireLogFieldString(t, entry, "request_id", "ext-id")
		requireLogFieldString(t, entry, "uri", "/entries/k?ttl=10s")
		requireLogFieldString(t, entry, "origin_addr", "203.0.113.7")
		requireLogFieldInt(t, entry, "status", http.StatusCreated)
		requireLogFieldInt(t, entry, "bytes_sent", len("hello"))
		requireRemoteAddrIPAndPort(t, entry, "10.0.0.1:54321")
	})

	t.Run("excluded endpoint is logged only on error", func(t *testing.T) {
		logger := logtest.NewRecorder()
		opts := LoggingOpts{ExcludedEndpoints: []string{"/healthz"}}

		next := &mockLoggingNextHandler{respStatusCode: http.StatusOK}
		LoggingWithOpts(logger, opts)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Empty(t, logger.Entries())

		next = &mockLoggingNextHandler{respStatusCode: http.StatusServiceUnavailable}
		LoggingWithOpts(logger, opts)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Len(t, logger.Entries(), 1)
		requireLogFieldInt(t, logger.Entries()[0], "status", http.StatusServiceUnavailable)
		require.Equal(t, log.LevelWarn, logger.Entries()[0].Level)
	})
}

func TestGetOriginAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, getOriginAddr(req))
	req.Header.Set(headerRealIP, " 198.51.100.2 ")
	require.Equal(t, "198.51.100.2", getOriginAddr(req))
	req.Header.Set(headerForwardedFor, "203.0.113.7")
	require.Equal(t, "203.0.113.7", getOriginAddr(req))
}

func requireLogFieldString(t *testing.T, logEntry logtest.RecordedEntry, key, want string) {
	t.Helper()
	logField, found := logEntry.FindField(key)
	require.True(t, found, "field %q not found", key)
	require.Equal(t, want, string(logField.Bytes))
}

func requireLogFieldInt(t *testing.T, logEntry logtest.RecordedEntry, key string, want int) {
	t.Helper()
	logField, found := logEntry.FindField(key)
	require.True(t, found, "field %q not found", key)
	require.Equal(t, want, int(logField.Int))
}

func requireRemoteAddrIPAndPort(t *testing.T, logEntry logtest.RecordedEntry, want string) {
	t.Helper()
	ipField, found := logEntry.FindField("remote_addr_ip")
	require.True(t, found)
	portField, found := logEntry.FindField("remote_addr_port")
	require.True(t, found)
	require.Equal(t, want, fmt.Sprintf("%s:%d", string(ipField.Bytes), uint16(portField.Int)))
}
