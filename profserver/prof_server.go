/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides a service unit serving pprof and expvar handlers under /debug.
package profserver

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/acronis/go-lrucache/httpserver/middleware"
	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/service"
)

const readHeaderTimeout = 5 * time.Second

// Opts represents options for the profiling server.
type Opts struct {
	// Listener is used instead of listening on Config.Address when set.
	Listener net.Listener
}

// ProfServer is a service.Unit running an HTTP server with pprof handlers.
type ProfServer struct {
	HTTPServer *http.Server
	Logger     log.FieldLogger

	listener net.Listener
	served   chan struct{} // closed when Start returns
	running  chan struct{} // closed when Start is called
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a new profiling server listening on cfg.Address.
func New(cfg *Config, logger log.FieldLogger) *ProfServer {
	return NewWithOpts(cfg, logger, Opts{})
}

// NewWithOpts creates a new profiling server with the provided options.
func NewWithOpts(cfg *Config, logger log.FieldLogger, opts Opts) *ProfServer {
	router := chi.NewRouter()
	router.Use(middleware.RequestID(), middleware.LoggingWithOpts(logger, middleware.LoggingOpts{RequestStart: true}))
	router.Mount("/debug", chimiddleware.Profiler())

	addr := cfg.Address
	if opts.Listener != nil {
		addr = opts.Listener.Addr().String()
	}
	return &ProfServer{
		HTTPServer: &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: readHeaderTimeout},
		Logger:     logger.With(log.String("address", addr)),
		listener:   opts.Listener,
		served:     make(chan struct{}),
		running:    make(chan struct{}),
	}
}

// URL returns the base URL of the server.
func (s *ProfServer) URL() string {
	return "http://" + s.HTTPServer.Addr
}

// Start serves profiling requests until Stop is called.
// A serving error other than closing is sent to fatalError.
func (s *ProfServer) Start(fatalError chan<- error) {
	close(s.running)
	defer close(s.served)

	s.Logger.Info("starting profiling HTTP server...")
	var err error
	if s.listener != nil {
		err = s.HTTPServer.Serve(s.listener)
	} else {
		err = s.HTTPServer.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		s.Logger.Info("profiling HTTP server closed")
		return
	}
	s.Logger.Error("profiling HTTP server error", log.Error(err))
	fatalError <- err
}

// Stop closes the server immediately, profiling requests are never drained.
// If Start has been called, Stop waits for it to return.
func (s *ProfServer) Stop(bool) error {
	s.Logger.Info("closing profiling HTTP server...")
	if err := s.HTTPServer.Close(); err != nil {
		s.Logger.Error("profiling HTTP server closing error", log.Error(err))
		return err
	}
	select {
	case <-s.running:
		<-s.served
	default:
	}
	return nil
}
