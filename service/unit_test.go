/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"fmt"

	"go.uber.org/atomic"
)

// fakeUnit blocks in Start until it is stopped, or fails immediately if startErr is set.
type fakeUnit struct {
	name     string
	running  *atomic.Int32
	stopped  chan struct{}
	startErr error
	stopErr  bool

	startCalls      atomic.Int32
	stopCalls       atomic.Int32
	gracefulStops   atomic.Int32
	registerCalls   atomic.Int32
	unregisterCalls atomic.Int32
}

func newFakeUnit(name string, running *atomic.Int32) *fakeUnit {
	return &fakeUnit{name: name, running: running, stopped: make(chan struct{})}
}

func (u *fakeUnit) Start(fatalErr chan<- error) {
	u.startCalls.Inc()
	if u.startErr != nil {
		fatalErr <- u.startErr
		return
	}
	u.running.Inc()
	<-u.stopped
	u.running.Dec()
}

func (u *fakeUnit) Stop(gracefully bool) error {
	if u.stopCalls.Inc() == 1 {
		close(u.stopped)
	}
	if gracefully {
		u.gracefulStops.Inc()
	}
	if u.stopErr {
		return fmt.Errorf("%s: stop failed", u.name)
	}
	return nil
}

func (u *fakeUnit) MustRegisterMetrics() { u.registerCalls.Inc() }

func (u *fakeUnit) UnregisterMetrics() { u.unregisterCalls.Inc() }
