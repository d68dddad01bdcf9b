/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"context"
	"net"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-lrucache/retry"
)

const waitListeningPollInterval = 10 * time.Millisecond

// NewLocalListener listens on a random free TCP port of 127.0.0.1 and fails the test if it cannot.
// The caller owns the listener (usually passes it to the server under test).
func NewLocalListener(t require.TestingT) net.Listener {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return ln
}

// GetLocalAddrWithFreeTCPPort returns 127.0.0.1:<port> with a port that was free at the moment of the call.
func GetLocalAddrWithFreeTCPPort() string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	addr := ln.Addr().String()
	if err = ln.Close(); err != nil {
		panic(err)
	}
	return addr
}

// WaitListeningServer waits until the server accepts TCP connections on addr.
func WaitListeningServer(addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	policy := retry.NewConstantBackoffPolicy(waitListeningPollInterval, 0)
	return retry.DoWithRetry(ctx, policy, nil, nil, func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	})
}
