/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains assertion helpers shared by tests of HTTP handlers, metrics and servers.
package testutil

type tHelper interface {
	Helper()
}
