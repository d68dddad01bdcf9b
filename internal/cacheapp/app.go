/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package cacheapp assembles the cache daemon: the cache itself, its REST API server,
// the periodic sweeper of expired entries and the optional profiling server.
package cacheapp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/acronis/go-lrucache/httpserver"
	"github.com/acronis/go-lrucache/internal/cacheapi"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/lrucache"
	"github.com/acronis/go-lrucache/profserver"
	"github.com/acronis/go-lrucache/restapi"
	"github.com/acronis/go-lrucache/service"
)

// MetricsNamespace is prepended to the names of all metrics exposed by the daemon.
const MetricsNamespace = "lrucached"

const healthCheckComponentCache = "cache"

// Opts contains optional parameters for constructing App.
type Opts struct {
	// Registry is used for registering and gathering metrics.
	// A new registry with Go and process collectors is created if nil.
	Registry *prometheus.Registry

	// Listener is passed to the HTTP server instead of listening on the configured address.
	Listener net.Listener
}

// App is the cache daemon. It implements service.Unit and service.MetricsRegisterer,
// so it may be run by service.Service directly.
type App struct {
	Cache      *lrucache.LRUCache[string, []byte]
	HTTPServer *httpserver.HTTPServer
	ProfServer *profserver.ProfServer // nil if profiling is disabled
	Registry   *prometheus.Registry
	Logger     log.FieldLogger

	cacheMetrics *lrucache.PrometheusMetrics
	units        *service.CompositeUnit
}

var _ service.Unit = (*App)(nil)
var _ service.MetricsRegisterer = (*App)(nil)

// New creates the daemon from the configuration. Nothing is started until Start or Run is called.
func New(cfg *AppConfig, logger log.FieldLogger, opts Opts) (*App, error) {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	cacheMetrics := lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{Namespace: MetricsNamespace})
	cache, err := lrucache.NewWithConfig(cfg.Cache, cacheMetrics, lrucache.Options[string, []byte]{
		OnEvict: func(key string, _ []byte) {
			logger.Debug("cache entry evicted", log.String("key", key))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	app := &App{
		Cache:        cache,
		Registry:     registry,
		Logger:       logger,
		cacheMetrics: cacheMetrics,
	}

	handler := cacheapi.NewHandler(cache, cacheapi.HandlerOpts{
		MaxValueSize: uint64(cfg.Server.Limits.MaxBodySize),
		Logger:       logger,
	})
	app.HTTPServer, err = httpserver.New(cfg.Server, logger, httpserver.Opts{
		ServiceNameInURL:  cacheapi.ServiceNameInURL,
		APIRoutes:         map[httpserver.APIVersion]httpserver.APIRoute{cacheapi.APIVersion: handler.Routes},
		ErrorDomain:       cacheapi.ErrorDomain,
		HealthCheck:       app.checkHealth,
		MetricsRegisterer: registry,
		MetricsGatherer:   registry,
		MetricsNamespace:  MetricsNamespace,
		Listener:          opts.Listener,
	})
	if err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}

	units := []service.Unit{app.HTTPServer}
	if interval := time.Duration(cfg.Cache.CleanupInterval); interval > 0 {
		units = append(units, newSweepUnit(cache, interval, time.Duration(cfg.Server.Timeouts.Shutdown), logger))
	}
	if cfg.ProfServer.Enabled {
		app.ProfServer = profserver.New(cfg.ProfServer, logger)
		units = append(units, app.ProfServer)
	}
	app.units = service.NewCompositeUnit(units...)

	return app, nil
}

// Start starts all units of the daemon. It blocks until they are stopped.
func (a *App) Start(fatalErr chan<- error) {
	a.Logger.Info("starting cache daemon",
		log.Int("capacity", a.Cache.Capacity()),
		log.Duration("default_ttl", a.Cache.DefaultTTL()),
	)
	a.units.Start(fatalErr)
}

// Stop stops all units of the daemon.
func (a *App) Stop(gracefully bool) error {
	return a.units.Stop(gracefully)
}

// MustRegisterMetrics registers cache, REST API and HTTP server metrics in the registry.
func (a *App) MustRegisterMetrics() {
	a.cacheMetrics.MustRegisterIn(a.Registry)
	restapi.MustInitAndRegisterMetrics(MetricsNamespace, a.Registry)
	a.units.MustRegisterMetrics()
}

// UnregisterMetrics unregisters all metrics registered by MustRegisterMetrics.
func (a *App) UnregisterMetrics() {
	a.units.UnregisterMetrics()
	restapi.UnregisterMetrics(a.Registry)
	a.cacheMetrics.UnregisterFrom(a.Registry)
}

// Run runs the daemon until ctx is done, a shutdown signal is received or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	return service.New(a.Logger, a).StartContext(ctx)
}

func (a *App) checkHealth(ctx context.Context) (httpserver.HealthCheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return httpserver.HealthCheckResult{healthCheckComponentCache: httpserver.HealthCheckStatusOK}, nil
}
