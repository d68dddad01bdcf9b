/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/acronis/go-lrucache/log"
)

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// LoggingOpts represents options for Logging middleware.
type LoggingOpts struct {
	// RequestStart enables an additional entry logged before the request is served.
	RequestStart bool

	// ExcludedEndpoints are URL paths logged only if the response status is 4xx or 5xx.
	ExcludedEndpoints []string
}

// Logging returns a middleware that logs every served request with its response status, size and duration.
// A logger with request id fields is put into the request context for handlers.
// Responses with 5xx status are logged at warn level.
func Logging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return LoggingWithOpts(logger, LoggingOpts{})
}

// LoggingWithOpts is a more configurable version of Logging.
func LoggingWithOpts(logger log.FieldLogger, opts LoggingOpts) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			started := GetRequestStartTimeFromContext(ctx)
			if started.IsZero() {
				started = time.Now()
				ctx = NewContextWithRequestStartTime(ctx, started)
			}

			reqLogger := logger.With(
				log.String("request_id", GetRequestIDFromContext(ctx)),
				log.String("int_request_id", GetInternalRequestIDFromContext(ctx)),
			)
			excluded := isEndpointExcluded(r.URL.Path, opts.ExcludedEndpoints)
			accessLogger := reqLogger.With(requestLogFields(r)...)
			if opts.RequestStart && !excluded {
				accessLogger.Info("request started")
			}

			wrw := WrapResponseWriterIfNeeded(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r.WithContext(NewContextWithLogger(ctx, reqLogger)))

			status := responseStatus(wrw)
			if excluded && status < http.StatusBadRequest {
				return
			}
			elapsed := time.Since(started)
			logFn := accessLogger.Info
			if status >= http.StatusInternalServerError {
				logFn = accessLogger.Warn
			}
			logFn(fmt.Sprintf("response completed in %.3fs", elapsed.Seconds()),
				log.Int64("duration_ms", elapsed.Milliseconds()),
				log.Int("status", status),
				log.Int("bytes_sent", wrw.BytesWritten()),
			)
		})
	}
}

func requestLogFields(r *http.Request) []log.Field {
	fields := []log.Field{
		log.String("method", r.Method),
		log.String("uri", r.RequestURI),
		log.String("remote_addr", r.RemoteAddr),
		log.Int64("content_length", r.ContentLength),
		log.String("user_agent", r.UserAgent()),
	}
	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		fields = append(fields, log.String("remote_addr_ip", host))
		if p, pErr := strconv.ParseUint(port, 10, 16); pErr == nil {
			fields = append(fields, log.Uint64("remote_addr_port", p))
		}
	}
	if origin := getOriginAddr(r); origin != "" {
		fields = append(fields, log.String("origin_addr", origin))
	}
	return fields
}

// getOriginAddr returns the client address set by a proxy: the first hop of X-Forwarded-For or X-Real-IP.
func getOriginAddr(r *http.Request) string {
	if fwd := r.Header.Get(headerForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get(headerRealIP))
}
