/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs units of a daemon (HTTP server, background workers)
// and stops them gracefully on OS signals or context cancellation.
package service

// Unit represents a service unit that can be started and stopped.
type Unit interface {
	// Start begins the unit's operation. It may return immediately or block for the unit's lifetime.
	// On failure it writes exactly one error to fatalErr, on success it writes nothing.
	// The channel must not be used after Start has returned.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register its own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
