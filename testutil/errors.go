/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"time"

	"github.com/stretchr/testify/require"
)

// RequireNoErrorInChannel asserts that there is no error in buffered channel.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var err error
	select {
	case err = <-c:
	default:
	}
	require.NoError(t, err, msgAndArgs...)
}

// RequireErrorFromChannel waits for a value in the channel and returns it.
// The test fails if nothing is received within the timeout.
func RequireErrorFromChannel(t require.TestingT, c <-chan error, timeout time.Duration) error {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	select {
	case err := <-c:
		return err
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for a value in the error channel")
	}
	return nil
}
