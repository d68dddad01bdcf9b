/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package middleware contains HTTP middlewares used by the server:
// request ids, request logging, panic recovery, rate limiting and Prometheus metrics.
package middleware

import (
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// RoutePatternGetterFunc is a function for getting route pattern from the request (e.g. "/entries/{key}").
type RoutePatternGetterFunc func(r *http.Request) string

// WrapResponseWriter is a proxy around http.ResponseWriter that remembers the status code and the body size.
type WrapResponseWriter = chimw.WrapResponseWriter

// WrapResponseWriterIfNeeded wraps an http.ResponseWriter unless it is already wrapped.
func WrapResponseWriterIfNeeded(rw http.ResponseWriter, protoMajor int) WrapResponseWriter {
	if wrw, ok := rw.(WrapResponseWriter); ok {
		return wrw
	}
	return chimw.NewWrapResponseWriter(rw, protoMajor)
}

// responseStatus returns the status written to wrw, treating "nothing written" as 200 like net/http does.
func responseStatus(wrw WrapResponseWriter) int {
	if status := wrw.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}

func isEndpointExcluded(urlPath string, endpoints []string) bool {
	for _, endpoint := range endpoints {
		if urlPath == endpoint {
			return true
		}
	}
	return false
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
