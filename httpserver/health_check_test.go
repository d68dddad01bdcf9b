/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-lrucache/httpserver/middleware"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/restapi"
	"github.com/acronis/go-lrucache/testutil"
)

func TestHealthCheckHandler_ServeHTTP(t *testing.T) {
	makeRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(middleware.NewContextWithLogger(req.Context(), log.NewDisabledLogger()))
	}

	t.Run("health-check returns error", func(t *testing.T) {
		h := NewHealthCheckHandler(func(context.Context) (HealthCheckResult, error) {
			return nil, fmt.Errorf("internal error")
		})
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, makeRequest())
		require.Equal(t, http.StatusInternalServerError, resp.Code)
	})

	t.Run("health-check is canceled", func(t *testing.T) {
		h := NewHealthCheckHandler(nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, makeRequest().WithContext(ctx))
		require.Equal(t, StatusClientClosedRequest, resp.Code)
	})

	t.Run("health-check without logger in context", func(t *testing.T) {
		h := NewHealthCheckHandler(func(context.Context) (HealthCheckResult, error) {
			return HealthCheckResult{"cache": HealthCheckStatusOK}, nil
		})
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, resp.Code)
		require.JSONEq(t, `{"status":"ok","components":{"cache":true}}`, resp.Body.String())
	})

	t.Run("health-check with empty components", func(t *testing.T) {
		resp := httptest.NewRecorder()
		NewHealthCheckHandler(nil).ServeHTTP(resp, makeRequest())
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, restapi.ContentTypeAppJSON, resp.Header().Get("Content-Type"))
		require.JSONEq(t, `{"status":"ok","components":{}}`, resp.Body.String())
	})

	t.Run("health-check returns unhealthy components", func(t *testing.T) {
		h := NewHealthCheckHandler(func(context.Context) (HealthCheckResult, error) {
			return HealthCheckResult{"cache": HealthCheckStatusOK, "sweeper": HealthCheckStatusFail}, nil
		})
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, makeRequest())
		var got healthCheckResponseData
		testutil.RequireJSONInRecorder(t, resp,
			&healthCheckResponseData{Status: "fail", Components: map[string]bool{"cache": true, "sweeper": false}}, &got)
		require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	})
}
