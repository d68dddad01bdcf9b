/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acronis/go-lrucache/log"
)

// Opts represents options for Service.
type Opts struct {
	// ShutdownSignals stop the unit gracefully. No signals are handled if it's empty.
	ShutdownSignals []os.Signal
}

// Service runs a single unit (usually a CompositeUnit), registering its metrics for the run time.
type Service struct {
	Unit    Unit
	Signals chan os.Signal
	Logger  log.FieldLogger
	Opts    Opts
}

// New creates a Service that stops the unit on SIGINT or SIGTERM.
func New(logger log.FieldLogger, unit Unit) *Service {
	return NewWithOpts(logger, unit, Opts{ShutdownSignals: []os.Signal{syscall.SIGINT, syscall.SIGTERM}})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(logger log.FieldLogger, unit Unit, opts Opts) *Service {
	return &Service{Unit: unit, Signals: make(chan os.Signal, 1), Logger: logger, Opts: opts}
}

// Start runs the service with the background context.
func (s *Service) Start() error {
	return s.StartContext(context.Background())
}

// StartContext starts the unit and blocks until it fails, a shutdown signal arrives or ctx is done.
// In the last two cases the unit is stopped gracefully.
func (s *Service) StartContext(ctx context.Context) error {
	if mr, ok := s.Unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}
	if len(s.Opts.ShutdownSignals) > 0 {
		signal.Notify(s.Signals, s.Opts.ShutdownSignals...)
		defer signal.Stop(s.Signals)
	}

	fatalErr := make(chan error, 1)
	go s.Unit.Start(fatalErr)

	if err := s.waitShutdown(ctx, fatalErr); err != nil {
		s.Logger.Error("service fatal error", log.Error(err))
		return fmt.Errorf("fatal error: %w", err)
	}
	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	s.Logger.Info("service stopped")
	return nil
}

// waitShutdown returns a fatal error of the unit or nil when the service should be stopped normally.
func (s *Service) waitShutdown(ctx context.Context, fatalErr <-chan error) error {
	select {
	case err := <-fatalErr:
		return err
	case <-ctx.Done():
		s.Logger.Info("context is done, service will be stopped")
	case sig := <-s.Signals:
		s.Logger.Info("service got signal, it will be stopped", log.String("signal", sig.String()))
	}
	return nil
}
