/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/acronis/go-lrucache/httpserver/middleware"
	"github.com/acronis/go-lrucache/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// IsValid checks if the logger mode is valid.
func (lm LoggingMode) IsValid() bool {
	switch lm {
	case LoggingModeNone, LoggingModeAll, LoggingModeFailed:
		return true
	}
	return false
}

// LoggingRoundTripper implements http.RoundTripper for logging requests.
type LoggingRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// ReqType is a type of request (e.g. "cache-put") used to correlate log records.
	ReqType string

	Opts LoggingRoundTripperOpts
}

// LoggingRoundTripperOpts represents an options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// LoggerProvider is a function that provides a context-specific logger.
	// middleware.GetLoggerFromContext is used by default.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Mode of logging: none, all, failed. "all" is used by default.
	Mode LoggingMode

	// SlowRequestThreshold makes successful requests taking longer than it to be logged in the "failed" mode.
	// Zero disables it.
	SlowRequestThreshold time.Duration
}

// NewLoggingRoundTripper creates an HTTP transport that log requests.
func NewLoggingRoundTripper(delegate http.RoundTripper, reqType string) http.RoundTripper {
	return NewLoggingRoundTripperWithOpts(delegate, reqType, LoggingRoundTripperOpts{})
}

// NewLoggingRoundTripperWithOpts creates an HTTP transport that log requests with options.
func NewLoggingRoundTripperWithOpts(
	delegate http.RoundTripper, reqType string, opts LoggingRoundTripperOpts,
) http.RoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	if opts.LoggerProvider == nil {
		opts.LoggerProvider = loggerFromContext
	}
	return &LoggingRoundTripper{Delegate: delegate, ReqType: reqType, Opts: opts}
}

// RoundTrip adds logging capabilities to the HTTP transport.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Opts.Mode == LoggingModeNone {
		return rt.Delegate.RoundTrip(r)
	}

	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	elapsed := time.Since(start)

	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	slow := rt.Opts.SlowRequestThreshold > 0 && elapsed >= rt.Opts.SlowRequestThreshold
	if rt.Opts.Mode == LoggingModeFailed && !failed && !slow {
		return resp, err
	}

	fields := []log.Field{
		log.String("method", r.Method),
		log.String("url", r.URL.String()),
		log.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rt.ReqType != "" {
		fields = append(fields, log.String("request_type", rt.ReqType))
	}
	if requestID := r.Header.Get(RequestIDHeader); requestID != "" {
		fields = append(fields, log.String("request_id", requestID))
	}

	logger := rt.Opts.LoggerProvider(r.Context())
	if err != nil {
		logger.Error("client http request failed", append(fields, log.Error(err))...)
		return resp, err
	}
	fields = append(fields, log.Int("status", resp.StatusCode))
	if failed {
		logger.Warn("client http request done with error status", fields...)
	} else {
		logger.Info("client http request done", fields...)
	}
	return resp, err
}

func loggerFromContext(ctx context.Context) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(ctx); logger != nil {
		return logger
	}
	return log.NewDisabledLogger()
}
