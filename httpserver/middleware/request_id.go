/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/rs/xid"
)

const (
	headerRequestID         = "X-Request-ID"
	headerInternalRequestID = "X-Int-Request-ID"
)

// RequestIDOpts represents options for RequestID middleware. Nil generators default to xid.
type RequestIDOpts struct {
	GenerateID         func() string
	GenerateInternalID func() string
}

func newXID() string {
	return xid.New().String()
}

// RequestID returns a middleware that propagates the X-Request-ID header (generating one if the client sent none)
// and assigns every request a fresh internal id returned in X-Int-Request-ID.
// Both ids are available from the request context.
func RequestID() func(next http.Handler) http.Handler {
	return RequestIDWithOpts(RequestIDOpts{})
}

// RequestIDWithOpts is a more configurable version of RequestID.
func RequestIDWithOpts(opts RequestIDOpts) func(next http.Handler) http.Handler {
	genID, genInternalID := opts.GenerateID, opts.GenerateInternalID
	if genID == nil {
		genID = newXID
	}
	if genInternalID == nil {
		genInternalID = newXID
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if id == "" {
				id = genID()
			}
			internalID := genInternalID()
			rw.Header().Set(headerRequestID, id)
			rw.Header().Set(headerInternalRequestID, internalID)
			ctx := NewContextWithRequestID(r.Context(), id)
			next.ServeHTTP(rw, r.WithContext(NewContextWithInternalRequestID(ctx, internalID)))
		})
	}
}
