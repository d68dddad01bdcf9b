/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/acronis/go-lrucache/log"
)

// ErrPeriodicWorkerStop may be returned by a worker to interrupt PeriodicWorker's loop without error.
var ErrPeriodicWorkerStop = errors.New("stop periodic worker")

// Worker performs some (usually long-running) work.
type Worker interface {
	Run(ctx context.Context) error
}

// WorkerFunc is an adapter to allow the use of ordinary functions as Worker.
type WorkerFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// PeriodicWorker runs the underlying worker repeatedly with a delay between runs.
// Errors of a single run are logged and do not stop the loop.
type PeriodicWorker struct {
	worker Worker
	logger log.FieldLogger
	opts   PeriodicWorkerOpts
	delay  time.Duration
}

// PeriodicWorkerOpts contains optional parameters for constructing PeriodicWorker.
type PeriodicWorkerOpts struct {
	// Name is added to every log entry as the "worker" field.
	Name string

	// InitialDelay is the delay before the first run.
	InitialDelay time.Duration

	// IntervalDelayFunc, if set, computes the delay after each run (e.g. to back off after an error).
	IntervalDelayFunc func(worker Worker, err error) time.Duration
}

// NewPeriodicWorker creates a new instance of PeriodicWorker with constant delays.
func NewPeriodicWorker(worker Worker, intervalDelay time.Duration, logger log.FieldLogger) *PeriodicWorker {
	return NewPeriodicWorkerWithOpts(worker, intervalDelay, logger, PeriodicWorkerOpts{})
}

// NewPeriodicWorkerWithOpts is a more configurable version of NewPeriodicWorker.
func NewPeriodicWorkerWithOpts(
	worker Worker, intervalDelay time.Duration, logger log.FieldLogger, opts PeriodicWorkerOpts,
) *PeriodicWorker {
	if opts.Name != "" {
		logger = logger.With(log.String("worker", opts.Name))
	}
	return &PeriodicWorker{worker: worker, logger: logger, opts: opts, delay: intervalDelay}
}

// Run runs the loop until ctx is done or the worker returns ErrPeriodicWorkerStop.
// A panic in the worker is logged with its stack and re-raised.
func (pw *PeriodicWorker) Run(ctx context.Context) (err error) {
	pw.logger.Info("running periodic worker",
		log.Duration("initial_delay", pw.opts.InitialDelay), log.Duration("interval_delay", pw.delay))
	defer pw.logStop(&err)

	timer := time.NewTimer(pw.opts.InitialDelay)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		runErr := pw.worker.Run(ctx)
		if errors.Is(runErr, ErrPeriodicWorkerStop) {
			return nil
		}
		if runErr != nil {
			pw.logger.Error("periodic worker run failed", log.Error(runErr))
		}
		timer.Reset(pw.nextDelay(runErr)) // the fired timer has a drained channel
	}
}

func (pw *PeriodicWorker) nextDelay(runErr error) time.Duration {
	if pw.opts.IntervalDelayFunc == nil {
		return pw.delay
	}
	return pw.opts.IntervalDelayFunc(pw.worker, runErr)
}

func (pw *PeriodicWorker) logStop(err *error) {
	if p := recover(); p != nil {
		stack := make([]byte, 8192)
		stack = stack[:runtime.Stack(stack, false)]
		pw.logger.Error(fmt.Sprintf("panic: %+v", p), log.String("stack", string(stack)))
		panic(p)
	}
	if *err != nil {
		pw.logger.Error("periodic worker stopped with error", log.Error(*err))
		return
	}
	pw.logger.Info("periodic worker stopped")
}
