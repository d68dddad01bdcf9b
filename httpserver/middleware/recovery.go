/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/restapi"
)

// RecoveryDefaultStackSize defines the default size of stack part which will be logged.
const RecoveryDefaultStackSize = 8192

// RecoveryOpts represents an options for Recovery middleware.
type RecoveryOpts struct {
	StackSize int
}

type recoveryHandler struct {
	next        http.Handler
	errorDomain string
	opts        RecoveryOpts
}

// Recovery is a middleware that recovers from panics, logs the panic value with a stacktrace
// and responds with 500 and the internal error in JSON.
func Recovery(errDomain string) func(next http.Handler) http.Handler {
	return RecoveryWithOpts(errDomain, RecoveryOpts{StackSize: RecoveryDefaultStackSize})
}

// RecoveryWithOpts is a more configurable version of Recovery middleware.
func RecoveryWithOpts(errDomain string, opts RecoveryOpts) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &recoveryHandler{next: next, errorDomain: errDomain, opts: opts}
	}
}

func (h *recoveryHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		logger := GetLoggerFromContext(r.Context())

		// http.ErrAbortHandler is a sentinel panic that net/http handles silently, so it's propagated.
		if p == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
			if logger != nil {
				logger.Warn("request has been aborted", log.Error(http.ErrAbortHandler))
			}
			panic(p)
		}

		if logger != nil {
			var fields []log.Field
			if h.opts.StackSize > 0 {
				stack := make([]byte, h.opts.StackSize)
				stack = stack[:runtime.Stack(stack, false)]
				fields = append(fields, log.String("stack", string(stack)))
			}
			logger.Error(fmt.Sprintf("Panic: %+v", p), fields...)
		}
		restapi.RespondInternalError(rw, h.errorDomain, logger)
	}()

	h.next.ServeHTTP(rw, r)
}
