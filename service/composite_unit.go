/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"errors"
	"strings"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// CompositeUnit runs several units as one.
type CompositeUnit struct {
	Units []Unit
}

var _ Unit = (*CompositeUnit)(nil)
var _ MetricsRegisterer = (*CompositeUnit)(nil)

// NewCompositeUnit creates a new composite unit.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return &CompositeUnit{Units: units}
}

// Start starts all units concurrently and blocks until either all of them have started
// or one of them has failed.
// In the latter case the other units are stopped non-gracefully and a *CompositeUnitError
// with all start and stop errors is written to fatalErr.
func (cu *CompositeUnit) Start(fatalErr chan<- error) {
	unitErrs := make([]chan error, len(cu.Units))
	for i := range unitErrs {
		unitErrs[i] = make(chan error, 1)
	}

	started := make(chan bool, len(cu.Units))
	var pending atomic.Int32
	pending.Store(int32(len(cu.Units))) //nolint:gosec // unit count is small
	for i := range cu.Units {
		go func(i int) {
			cu.Units[i].Start(unitErrs[i])
			if len(unitErrs[i]) != 0 {
				started <- false
				return
			}
			if pending.Dec() == 0 {
				started <- true
			}
		}(i)
	}

	if len(cu.Units) == 0 || <-started {
		return
	}

	var errs []error
	stopErr := cu.Stop(false)
	for _, unitErr := range unitErrs {
		select {
		case err := <-unitErr:
			errs = append(errs, err)
		default:
		}
	}
	var cuErr *CompositeUnitError
	if errors.As(stopErr, &cuErr) {
		errs = append(errs, cuErr.UnitErrors...)
	}
	fatalErr <- &CompositeUnitError{UnitErrors: errs}
}

// Stop stops all units concurrently and returns a *CompositeUnitError if any of them failed to stop.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	var (
		mu   sync.Mutex
		errs []error
		eg   errgroup.Group
	)
	for _, u := range cu.Units {
		u := u
		eg.Go(func() error {
			if err := u.Stop(gracefully); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	if len(errs) != 0 {
		return &CompositeUnitError{UnitErrors: errs}
	}
	return nil
}

// MustRegisterMetrics registers metrics of all units that implement MetricsRegisterer.
func (cu *CompositeUnit) MustRegisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.MustRegisterMetrics()
		}
	}
}

// UnregisterMetrics unregisters metrics of all units that implement MetricsRegisterer.
func (cu *CompositeUnit) UnregisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.UnregisterMetrics()
		}
	}
}

// CompositeUnitError holds errors of the particular units.
type CompositeUnitError struct {
	UnitErrors []error
}

func (cue *CompositeUnitError) Error() string {
	msgs := make([]string, 0, len(cue.UnitErrors))
	for _, err := range cue.UnitErrors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap allows errors.Is and errors.As to look into the unit errors.
func (cue *CompositeUnitError) Unwrap() []error {
	return cue.UnitErrors
}
