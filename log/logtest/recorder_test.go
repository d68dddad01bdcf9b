/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-lrucache/log"
)

func TestRecorder(t *testing.T) {
	logRecorder := NewRecorder()
	logRecorder.Warn("cache is full", log.Int("capacity", 10), log.String("key", "user:1"))
	logRecorder.Info("cleanup finished")

	require.Len(t, logRecorder.Entries(), 2)
	require.Equal(t, log.LevelInfo, logRecorder.Entries()[1].Level)

	_, found := logRecorder.FindEntry("unknown")
	require.False(t, found)

	logEntry, found := logRecorder.FindEntry("cache is full")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, logEntry.Level)

	capacityField, found := logEntry.FindField("capacity")
	require.True(t, found)
	require.Equal(t, 10, int(capacityField.Int))

	keyField, found := logEntry.FindField("key")
	require.True(t, found)
	require.Equal(t, "user:1", string(keyField.Bytes))

	logRecorder.Info("cleanup finished")
	require.Len(t, logRecorder.FindEntries("cleanup finished"), 2)
	require.Empty(t, logRecorder.FindEntries("unknown"))

	logRecorder.Reset()
	require.Empty(t, logRecorder.Entries())
}

func TestRecorder_DerivedLoggers(t *testing.T) {
	logRecorder := NewRecorder()
	logRecorder.With(log.String("component", "sweeper")).Info("swept")
	logRecorder.WithLevel(log.LevelWarn).Info("dropped")

	entries := logRecorder.Entries()
	require.Len(t, entries, 1)
	componentField, found := entries[0].FindField("component")
	require.True(t, found)
	require.Equal(t, "sweeper", string(componentField.Bytes))
}
