/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package profserver

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-lrucache/log/logtest"
	"github.com/acronis/go-lrucache/testutil"
)

func TestProfServer(t *testing.T) {
	logger := logtest.NewRecorder()
	srv := NewWithOpts(&Config{Enabled: true}, logger, Opts{Listener: testutil.NewLocalListener(t)})
	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)

	for _, path := range []string{"/debug/pprof/", "/debug/vars"} {
		resp, err := http.Get(srv.URL() + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		require.NotEmpty(t, body)
	}

	require.NoError(t, srv.Stop(false))
	testutil.RequireNoErrorInChannel(t, fatalErr)
	_, found := logger.FindEntry("profiling HTTP server closed")
	require.True(t, found)
}

func TestProfServer_StopWithoutStart(t *testing.T) {
	srv := New(NewDefaultConfig(), logtest.NewRecorder())
	require.Equal(t, "http://127.0.0.1:6060", srv.URL())
	require.NoError(t, srv.Stop(true))
}
