/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/acronis/go-lrucache/httpserver/middleware"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/restapi"
)

// StatusClientClosedRequest is the non-standard status (introduced by Nginx)
// responded when the client went away before the response was ready.
const StatusClientClosedRequest = 499

// HealthCheckStatus is a status of a single checked component.
type HealthCheckStatus int

// Component statuses.
const (
	HealthCheckStatusOK HealthCheckStatus = iota
	HealthCheckStatusFail
)

// HealthCheckResult maps component names to their statuses.
type HealthCheckResult = map[string]HealthCheckStatus

// HealthCheck checks components of the service.
type HealthCheck = func(ctx context.Context) (HealthCheckResult, error)

const (
	healthStatusOK   = "ok"
	healthStatusFail = "fail"
)

type healthCheckResponseData struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

// HealthCheckHandler is an http.Handler that responds with statuses of service components.
type HealthCheckHandler struct {
	check HealthCheck
}

// NewHealthCheckHandler creates a new HealthCheckHandler.
// With nil fn the service is considered healthy and has no components.
func NewHealthCheckHandler(fn HealthCheck) *HealthCheckHandler {
	if fn == nil {
		fn = func(ctx context.Context) (HealthCheckResult, error) { return nil, ctx.Err() }
	}
	return &HealthCheckHandler{check: fn}
}

// ServeHTTP responds 200 if all components are healthy and 503 otherwise.
func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	result, err := h.check(r.Context())
	switch {
	case errors.Is(err, context.Canceled):
		logger.Warn("health-check canceled", log.Error(err))
		rw.WriteHeader(StatusClientClosedRequest)
		return
	case err != nil:
		logger.Error("health-check failed", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	data := healthCheckResponseData{Status: healthStatusOK, Components: make(map[string]bool, len(result))}
	for name, status := range result {
		healthy := status == HealthCheckStatusOK
		data.Components[name] = healthy
		if !healthy {
			data.Status = healthStatusFail
		}
	}
	if data.Status == healthStatusFail {
		restapi.RespondCodeAndJSON(rw, http.StatusServiceUnavailable, data, logger)
		return
	}
	restapi.RespondJSON(rw, data, logger)
}
