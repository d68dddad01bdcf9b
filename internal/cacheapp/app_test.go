/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapp

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/acronis/go-lrucache/config"
	"github.com/acronis/go-lrucache/internal/cacheapi"
	"github.com/acronis/go-lrucache/log/logtest"
	"github.com/acronis/go-lrucache/lrucache"
	"github.com/acronis/go-lrucache/retry"
	"github.com/acronis/go-lrucache/testutil"
)

func TestNew(t *testing.T) {
	t.Run("invalid cache capacity", func(t *testing.T) {
		cfg := NewDefaultAppConfig()
		cfg.Cache.MaxEntries = 0
		_, err := New(cfg, logtest.NewRecorder(), Opts{})
		require.ErrorIs(t, err, lrucache.ErrInvalidCapacity)
	})

	t.Run("profiling server is created only if enabled", func(t *testing.T) {
		cfg := NewDefaultAppConfig()
		app, err := New(cfg, logtest.NewRecorder(), Opts{})
		require.NoError(t, err)
		require.Nil(t, app.ProfServer)
		require.Len(t, app.units.Units, 2)

		cfg.ProfServer.Enabled = true
		cfg.ProfServer.Address = testutil.GetLocalAddrWithFreeTCPPort()
		cfg.Cache.CleanupInterval = 0
		app, err = New(cfg, logtest.NewRecorder(), Opts{})
		require.NoError(t, err)
		require.NotNil(t, app.ProfServer)
		require.Len(t, app.units.Units, 2)
	})
}

func TestApp_Run(t *testing.T) {
	cfg := NewDefaultAppConfig()
	cfg.Cache.MaxEntries = 3
	cfg.Cache.CleanupInterval = config.TimeDuration(20 * time.Millisecond)

	ln := testutil.NewLocalListener(t)
	logRecorder := logtest.NewRecorder()
	app, err := New(cfg, logRecorder, Opts{Listener: ln})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var eg errgroup.Group
	eg.Go(func() error {
		return app.Run(ctx)
	})

	baseURL := "http://" + ln.Addr().String()
	client := cacheapi.NewClient(baseURL, &http.Client{Timeout: time.Second})
	require.NoError(t, client.WaitReady(ctx, retry.NewConstantBackoffPolicy(20*time.Millisecond, 50)))

	for _, key := range []string{"a", "b", "c", "d"} {
		require.NoError(t, client.Put(ctx, key, []byte("value-"+key), 0))
	}
	_, found, err := client.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, found)
	evictedEntry, found := logRecorder.FindEntry("cache entry evicted")
	require.True(t, found)
	keyField, found := evictedEntry.FindField("key")
	require.True(t, found)
	require.Equal(t, "a", string(keyField.Bytes))

	val, found, err := client.Get(ctx, "d")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("value-d"), val)

	require.NoError(t, client.Put(ctx, "short", []byte("x"), 30*time.Millisecond))
	require.Eventually(t, func() bool {
		return app.Cache.Stats().Expirations == 1
	}, 2*time.Second, 10*time.Millisecond)
	_, found = logRecorder.FindEntry("expired cache entries removed")
	require.True(t, found)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Capacity)
	require.Equal(t, 2, stats.Size)
	require.Equal(t, uint64(2), stats.Evictions)
	require.Len(t, logRecorder.FindEntries("cache entry evicted"), 2)

	testutil.RequireMetricValue(t, app.Registry, "lrucached_cache_puts_total", 5)
	testutil.RequireMetricValue(t, app.Registry, "lrucached_cache_evictions_total", 2)
	testutil.RequireMetricValue(t, app.Registry, "lrucached_cache_entries_amount", 2)

	resp, err := http.Get(baseURL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	metricsBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(metricsBody), "lrucached_cache_hits_total")
	require.Contains(t, string(metricsBody), "go_goroutines")

	cancel()
	require.NoError(t, eg.Wait())
}
