/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"

	"github.com/rs/xid"

	"github.com/acronis/go-lrucache/httpserver/middleware"
)

// RequestIDHeader is an HTTP header name carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestIDRoundTripper sets X-Request-ID header in outgoing requests.
type RequestIDRoundTripper struct {
	Delegate http.RoundTripper

	// RequestIDProvider returns the request ID for the context.
	RequestIDProvider func(ctx context.Context) string
}

// RequestIDRoundTripperOpts represents an options for RequestIDRoundTripper.
type RequestIDRoundTripperOpts struct {
	// RequestIDProvider returns the request ID for the context.
	// By default, the ID from the context (see middleware.GetRequestIDFromContext) is used,
	// and a new one is generated if the context has none.
	RequestIDProvider func(ctx context.Context) string
}

// NewRequestIDRoundTripper creates an HTTP transport with X-Request-ID header support.
func NewRequestIDRoundTripper(delegate http.RoundTripper) http.RoundTripper {
	return NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{})
}

// NewRequestIDRoundTripperWithOpts creates an HTTP transport with X-Request-ID header support and options.
func NewRequestIDRoundTripperWithOpts(delegate http.RoundTripper, opts RequestIDRoundTripperOpts) http.RoundTripper {
	if opts.RequestIDProvider == nil {
		opts.RequestIDProvider = requestIDFromContextOrNew
	}
	return &RequestIDRoundTripper{Delegate: delegate, RequestIDProvider: opts.RequestIDProvider}
}

// RoundTrip adds X-Request-ID header to the request if it's not set yet.
func (rt *RequestIDRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get(RequestIDHeader) != "" {
		return rt.Delegate.RoundTrip(r)
	}
	requestID := rt.RequestIDProvider(r.Context())
	if requestID == "" {
		return rt.Delegate.RoundTrip(r)
	}
	r = r.Clone(r.Context()) // Per RoundTripper contract.
	r.Header.Set(RequestIDHeader, requestID)
	return rt.Delegate.RoundTrip(r)
}

func requestIDFromContextOrNew(ctx context.Context) string {
	if requestID := middleware.GetRequestIDFromContext(ctx); requestID != "" {
		return requestID
	}
	return xid.New().String()
}
