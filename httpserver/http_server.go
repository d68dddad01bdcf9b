/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides the HTTP server unit: chi router with request ids, logging,
// panic recovery, metrics and rate limiting middlewares, plus /healthz and /metrics endpoints.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-lrucache/httpserver/middleware"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/service"
)

// systemEndpoints is a list of endpoints which are not involved in metrics collecting and rate limiting.
var systemEndpoints = []string{"/metrics", "/healthz"}

// APIVersion is a type alias for API version.
type APIVersion = int

// APIRoute is a type alias for single API route.
type APIRoute = func(router chi.Router)

// Opts represents options for creating HTTPServer.
type Opts struct {
	// ServiceNameInURL is a prefix for API routes (e.g., "/api/service_name/v1").
	ServiceNameInURL string
	// APIRoutes is a map of API versions to their route configuration functions.
	APIRoutes map[APIVersion]APIRoute
	// ErrorDomain is used for error response formatting.
	ErrorDomain string
	// HealthCheck is a function that performs health check logic.
	HealthCheck HealthCheck
	// MetricsRegisterer is used for HTTP request metrics. prometheus.DefaultRegisterer is used if nil.
	MetricsRegisterer prometheus.Registerer
	// MetricsGatherer is exposed on /metrics. prometheus.DefaultGatherer is used if nil.
	MetricsGatherer prometheus.Gatherer
	// MetricsNamespace is prepended to the names of HTTP request metrics.
	MetricsNamespace string
	// Listener is a pre-configured network listener to use instead of creating a new one.
	Listener net.Listener
}

// HTTPServer represents a wrapper around http.Server with additional fields and methods.
// chi.Router is used as a handler for the server.
// It also implements service.Unit and service.MetricsRegisterer interfaces.
type HTTPServer struct {
	HTTPServer      *http.Server
	HTTPRouter      chi.Router
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener       net.Listener
	port           atomic.Int32
	httpServerDone atomic.Value

	metricsRegisterer prometheus.Registerer
	httpReqMetrics    *middleware.HTTPRequestMetricsCollector
}

var _ service.Unit = (*HTTPServer)(nil)
var _ service.MetricsRegisterer = (*HTTPServer)(nil)

// New creates a new HTTPServer with predefined logging, metrics collecting,
// recovering after panics and health-checking functionality.
func New(cfg *Config, logger log.FieldLogger, opts Opts) (*HTTPServer, error) { //nolint // hugeParam: opts is heavy, it's ok in this case.
	httpReqMetrics := middleware.NewHTTPRequestMetricsCollectorWithOpts(
		middleware.HTTPRequestMetricsCollectorOpts{Namespace: opts.MetricsNamespace})

	mws, err := defaultMiddlewares(cfg, logger, opts.ErrorDomain, httpReqMetrics)
	if err != nil {
		return nil, err
	}
	router := chi.NewRouter()
	router.Use(mws...)
	configureRouter(router, logger, RouterOpts{
		ServiceNameInURL: opts.ServiceNameInURL,
		APIRoutes:        opts.APIRoutes,
		ErrorDomain:      opts.ErrorDomain,
		HealthCheck:      opts.HealthCheck,
		MetricsGatherer:  opts.MetricsGatherer,
	})

	metricsRegisterer := opts.MetricsRegisterer
	if metricsRegisterer == nil {
		metricsRegisterer = prometheus.DefaultRegisterer
	}

	return &HTTPServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			WriteTimeout:      time.Duration(cfg.Timeouts.Write),
			ReadTimeout:       time.Duration(cfg.Timeouts.Read),
			ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeader),
			IdleTimeout:       time.Duration(cfg.Timeouts.Idle),
			Handler:           router,
		},
		HTTPRouter:        router,
		Logger:            logger,
		ShutdownTimeout:   time.Duration(cfg.Timeouts.Shutdown),
		listener:          opts.Listener,
		metricsRegisterer: metricsRegisterer,
		httpReqMetrics:    httpReqMetrics,
	}, nil
}

// Start starts application HTTP server in a blocking way.
// It's supposed that this method will be called in a separate goroutine.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *HTTPServer) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.httpServerDone.Store(done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("read_header_timeout", s.HTTPServer.ReadHeaderTimeout),
		log.Duration("idle_timeout", s.HTTPServer.IdleTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	logger.Info("starting application HTTP server...")

	var err error
	if s.listener == nil {
		if s.listener, err = net.Listen("tcp", s.HTTPServer.Addr); err != nil {
			logger.Error("application HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
	}

	if tcpAddr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		s.port.Store(int32(tcpAddr.Port)) //nolint:gosec // TCP port always fits
	}

	if err = s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("application HTTP server closed")
			return
		}
		logger.Error("application HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops application HTTP server (gracefully or not).
func (s *HTTPServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing application HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("application HTTP server closing error", log.Error(err))
			return err
		}
		s.waitServeDone()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down application HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("application HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("application HTTP server shut down")
	s.waitServeDone()
	return nil
}

func (s *HTTPServer) waitServeDone() {
	if done, ok := s.httpServerDone.Load().(chan struct{}); ok && done != nil {
		<-done
	}
}

// MustRegisterMetrics registers HTTP request metrics and panics if any error occurs.
func (s *HTTPServer) MustRegisterMetrics() {
	s.httpReqMetrics.MustRegisterIn(s.metricsRegisterer)
}

// UnregisterMetrics unregisters HTTP request metrics.
func (s *HTTPServer) UnregisterMetrics() {
	s.httpReqMetrics.UnregisterFrom(s.metricsRegisterer)
}

// GetPort returns the TCP port the server listens on, or 0 if it has not started listening yet.
func (s *HTTPServer) GetPort() int {
	return int(s.port.Load())
}

// URL returns the base URL of the running server, e.g. "http://127.0.0.1:8080".
// The port is taken from the listener, so it is correct even for ":0" addresses.
func (s *HTTPServer) URL() string {
	host, _, err := net.SplitHostPort(s.HTTPServer.Addr)
	if err != nil || host == "" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.GetPort()))
}
