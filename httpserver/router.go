/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-lrucache/httpserver/middleware"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/restapi"
)

// RouterOpts represents options for creating chi.Router.
type RouterOpts struct {
	ServiceNameInURL string
	APIRoutes        map[APIVersion]APIRoute
	ErrorDomain      string
	HealthCheck      HealthCheck
	// MetricsGatherer is exposed on /metrics. prometheus.DefaultGatherer is used if nil.
	MetricsGatherer prometheus.Gatherer
}

// NewRouter creates a chi.Router with /metrics, /healthz and API routes mounted under /api/<service>/v<N>.
// Unknown routes and methods are responded with JSON errors.
func NewRouter(logger log.FieldLogger, opts RouterOpts) chi.Router {
	router := chi.NewRouter()
	configureRouter(router, logger, opts)
	return router
}

// nolint // hugeParam: opts is heavy, it's ok in this case.
func configureRouter(router chi.Router, logger log.FieldLogger, opts RouterOpts) {
	gatherer := opts.MetricsGatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.Method(http.MethodGet, "/healthz", NewHealthCheckHandler(opts.HealthCheck))

	router.Route("/api/"+opts.ServiceNameInURL, func(apiRouter chi.Router) {
		for ver, route := range opts.APIRoutes {
			apiRouter.Route(fmt.Sprintf("/v%d", ver), route)
		}
	})

	respondErr := func(status int, code, msg string) http.HandlerFunc {
		return func(rw http.ResponseWriter, r *http.Request) {
			reqLogger := middleware.GetLoggerFromContext(r.Context())
			if reqLogger == nil {
				reqLogger = logger
			}
			restapi.RespondError(rw, status, restapi.NewError(opts.ErrorDomain, code, msg), reqLogger)
		}
	}
	router.NotFound(respondErr(http.StatusNotFound, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound))
	router.MethodNotAllowed(respondErr(
		http.StatusMethodNotAllowed, restapi.ErrCodeMethodNotAllowed, restapi.ErrMessageMethodNotAllowed))
}

// defaultMiddlewares returns the middleware chain every server request goes through, outermost first.
// System endpoints are neither measured nor rate limited.
func defaultMiddlewares(
	cfg *Config, logger log.FieldLogger, errDomain string, reqMetrics *middleware.HTTPRequestMetricsCollector,
) ([]func(http.Handler) http.Handler, error) {
	mws := []func(http.Handler) http.Handler{
		markRequestStart,
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{
			RequestStart:      cfg.Log.RequestStart,
			ExcludedEndpoints: cfg.Log.ExcludedEndpoints,
		}),
		middleware.Recovery(errDomain),
		middleware.HTTPRequestMetricsWithOpts(reqMetrics, GetChiRoutePattern,
			middleware.HTTPRequestMetricsOpts{ExcludedEndpoints: systemEndpoints}),
	}
	if !cfg.RateLimit.Enabled() {
		return mws, nil
	}

	rlOpts := middleware.RateLimitOpts{Alg: cfg.RateLimit.Alg, MaxBurst: cfg.RateLimit.Burst}
	if cfg.RateLimit.ByClientIP {
		rlOpts.GetKey = middleware.RateLimitGetKeyByIP
	}
	rateLimit, err := middleware.RateLimitWithOpts(cfg.RateLimit.RPS, errDomain, rlOpts)
	if err != nil {
		return nil, fmt.Errorf("create rate limit middleware: %w", err)
	}
	return append(mws, skipSystemEndpoints(rateLimit)), nil
}

func markRequestStart(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(rw, r.WithContext(middleware.NewContextWithRequestStartTime(r.Context(), time.Now())))
	})
}

func skipSystemEndpoints(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if slices.Contains(systemEndpoints, r.URL.Path) {
				next.ServeHTTP(rw, r)
				return
			}
			wrapped.ServeHTTP(rw, r)
		})
	}
}

// GetChiRoutePattern extracts chi route pattern from request.
func GetChiRoutePattern(r *http.Request) string {
	// modified code from https://github.com/go-chi/chi/issues/270#issuecomment-479184559
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}

	routePath := r.URL.RawPath
	if routePath == "" {
		routePath = r.URL.Path
	}

	tctx := chi.NewRouteContext()
	if !rctx.Routes.Match(tctx, r.Method, routePath) {
		return ""
	}
	return tctx.RoutePattern()
}
