/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"context"
	"time"

	"github.com/acronis/go-lrucache/log"
)

// ctxKey is a typed context key, so values are read back without type switches.
type ctxKey[T any] struct{ name string }

func (k ctxKey[T]) store(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, k, v)
}

func (k ctxKey[T]) load(ctx context.Context) T {
	v, _ := ctx.Value(k).(T)
	return v
}

var (
	requestIDKey         = ctxKey[string]{"request_id"}
	internalRequestIDKey = ctxKey[string]{"int_request_id"}
	loggerKey            = ctxKey[log.FieldLogger]{"logger"}
	requestStartTimeKey  = ctxKey[time.Time]{"request_start_time"}
)

// NewContextWithRequestID returns a copy of ctx carrying the external request id.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return requestIDKey.store(ctx, requestID)
}

// GetRequestIDFromContext returns the external request id or an empty string.
func GetRequestIDFromContext(ctx context.Context) string {
	return requestIDKey.load(ctx)
}

// NewContextWithInternalRequestID returns a copy of ctx carrying the internal request id.
func NewContextWithInternalRequestID(ctx context.Context, internalRequestID string) context.Context {
	return internalRequestIDKey.store(ctx, internalRequestID)
}

// GetInternalRequestIDFromContext returns the internal request id or an empty string.
func GetInternalRequestIDFromContext(ctx context.Context) string {
	return internalRequestIDKey.load(ctx)
}

// NewContextWithLogger returns a copy of ctx carrying the request-scoped logger.
func NewContextWithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return loggerKey.store(ctx, logger)
}

// GetLoggerFromContext returns the request-scoped logger or nil.
func GetLoggerFromContext(ctx context.Context) log.FieldLogger {
	return loggerKey.load(ctx)
}

// NewContextWithRequestStartTime returns a copy of ctx carrying the time the request was received.
func NewContextWithRequestStartTime(ctx context.Context, startTime time.Time) context.Context {
	return requestStartTimeKey.store(ctx, startTime)
}

// GetRequestStartTimeFromContext returns the time the request was received or zero time.
func GetRequestStartTimeFromContext(ctx context.Context) time.Time {
	return requestStartTimeKey.load(ctx)
}
