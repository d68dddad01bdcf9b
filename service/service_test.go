/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-lrucache/log/logtest"
)

func TestService_StopBySignal(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	var running atomic.Int32
	unit := newFakeUnit("srv", &running)
	svc := New(logRecorder, unit)

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()
	require.Eventually(t, func() bool { return running.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, int32(1), unit.registerCalls.Load())

	svc.Signals <- os.Interrupt

	require.NoError(t, <-done)
	require.Equal(t, int32(1), unit.gracefulStops.Load())
	require.Equal(t, int32(1), unit.unregisterCalls.Load())
	_, found := logRecorder.FindEntry("service got signal, it will be stopped")
	require.True(t, found)
}

func TestService_StopByContext(t *testing.T) {
	var running atomic.Int32
	unit := newFakeUnit("srv", &running)
	svc := NewWithOpts(logtest.NewRecorder(), unit, Opts{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.StartContext(ctx) }()
	require.Eventually(t, func() bool { return running.Load() == 1 }, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Equal(t, int32(1), unit.gracefulStops.Load())
}

func TestService_FatalError(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	unit := newFakeUnit("srv", atomic.NewInt32(0))
	unit.startErr = errors.New("boom")
	svc := NewWithOpts(logRecorder, unit, Opts{})

	err := svc.StartContext(context.Background())
	require.ErrorIs(t, err, unit.startErr)
	_, found := logRecorder.FindEntry("service fatal error")
	require.True(t, found)
}

func TestService_StopError(t *testing.T) {
	var running atomic.Int32
	unit := newFakeUnit("srv", &running)
	unit.stopErr = true
	svc := NewWithOpts(logtest.NewRecorder(), unit, Opts{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorContains(t, svc.StartContext(ctx), "stop service gracefully")
}
