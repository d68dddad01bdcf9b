/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpRequestMetricsLabelMethod        = "method"
	httpRequestMetricsLabelRoutePattern  = "route_pattern"
	httpRequestMetricsLabelUserAgentType = "user_agent_type"
	httpRequestMetricsLabelStatusCode    = "status_code"
)

const (
	userAgentTypeBrowser    = "browser"
	userAgentTypeHTTPClient = "http-client"
)

// DefaultHTTPRequestDurationBuckets are histogram buckets (in seconds) for request durations.
// Cache requests are expected to be served in a few milliseconds.
var DefaultHTTPRequestDurationBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5}

// HTTPRequestMetricsCollectorOpts represents options for HTTPRequestMetricsCollector.
type HTTPRequestMetricsCollectorOpts struct {
	// Namespace is prepended to all metric names.
	Namespace string

	// DurationBuckets overrides DefaultHTTPRequestDurationBuckets.
	DurationBuckets []float64
}

// HTTPRequestMetricsCollector holds Prometheus metrics of served HTTP requests.
// Requests are labeled by method, route pattern and user agent type. Durations are labeled by status code too.
type HTTPRequestMetricsCollector struct {
	Durations *prometheus.HistogramVec
	InFlight  *prometheus.GaugeVec
}

// NewHTTPRequestMetricsCollector creates a collector with default options.
func NewHTTPRequestMetricsCollector() *HTTPRequestMetricsCollector {
	return NewHTTPRequestMetricsCollectorWithOpts(HTTPRequestMetricsCollectorOpts{})
}

// NewHTTPRequestMetricsCollectorWithOpts creates a collector with the given options.
func NewHTTPRequestMetricsCollectorWithOpts(opts HTTPRequestMetricsCollectorOpts) *HTTPRequestMetricsCollector {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultHTTPRequestDurationBuckets
	}
	reqLabels := []string{
		httpRequestMetricsLabelMethod, httpRequestMetricsLabelRoutePattern, httpRequestMetricsLabelUserAgentType,
	}
	return &HTTPRequestMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "A histogram of the HTTP request durations.",
			Buckets:   buckets,
		}, append(append([]string(nil), reqLabels...), httpRequestMetricsLabelStatusCode)),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: opts.Namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being served.",
		}, reqLabels),
	}
}

// MustRegisterIn registers the metrics in reg and panics on failure.
func (c *HTTPRequestMetricsCollector) MustRegisterIn(reg prometheus.Registerer) {
	reg.MustRegister(c.Durations, c.InFlight)
}

// UnregisterFrom removes the metrics from reg.
func (c *HTTPRequestMetricsCollector) UnregisterFrom(reg prometheus.Registerer) {
	reg.Unregister(c.InFlight)
	reg.Unregister(c.Durations)
}

func (c *HTTPRequestMetricsCollector) observe(method, route, uaType string, status int, started time.Time) {
	c.Durations.WithLabelValues(method, route, uaType, strconv.Itoa(status)).Observe(time.Since(started).Seconds())
}

// HTTPRequestMetricsOpts represents options for HTTPRequestMetrics middleware.
type HTTPRequestMetricsOpts struct {
	// ExcludedEndpoints are URL paths which are not measured.
	ExcludedEndpoints []string
}

// HTTPRequestMetrics returns a middleware that measures in-flight requests and request durations.
func HTTPRequestMetrics(
	collector *HTTPRequestMetricsCollector, getRoutePattern RoutePatternGetterFunc,
) func(next http.Handler) http.Handler {
	return HTTPRequestMetricsWithOpts(collector, getRoutePattern, HTTPRequestMetricsOpts{})
}

// HTTPRequestMetricsWithOpts is a more configurable version of HTTPRequestMetrics.
// The route pattern is taken again after the request is served if it was unknown before (e.g. chi resolves it lazily).
func HTTPRequestMetricsWithOpts(
	collector *HTTPRequestMetricsCollector, getRoutePattern RoutePatternGetterFunc, opts HTTPRequestMetricsOpts,
) func(next http.Handler) http.Handler {
	if getRoutePattern == nil {
		panic("function for getting route pattern cannot be nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if isEndpointExcluded(r.URL.Path, opts.ExcludedEndpoints) {
				next.ServeHTTP(rw, r)
				return
			}

			started := GetRequestStartTimeFromContext(r.Context())
			if started.IsZero() {
				started = time.Now()
				r = r.WithContext(NewContextWithRequestStartTime(r.Context(), started))
			}
			route, uaType := getRoutePattern(r), determineUserAgentType(r)
			inFlight := collector.InFlight.WithLabelValues(r.Method, route, uaType)
			inFlight.Inc()
			defer inFlight.Dec()

			wrw := WrapResponseWriterIfNeeded(rw, r.ProtoMajor)
			defer func() {
				if route == "" {
					route = getRoutePattern(r)
				}
				if p := recover(); p != nil {
					if p != http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
						collector.observe(r.Method, route, uaType, http.StatusInternalServerError, started)
					}
					panic(p)
				}
				collector.observe(r.Method, route, uaType, responseStatus(wrw), started)
			}()
			next.ServeHTTP(wrw, r)
		})
	}
}

func determineUserAgentType(r *http.Request) string {
	if strings.Contains(strings.ToLower(r.UserAgent()), "mozilla") {
		return userAgentTypeBrowser
	}
	return userAgentTypeHTTPClient
}
