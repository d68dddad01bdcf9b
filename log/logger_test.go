/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogger_JSON(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Level = LevelWarn

	var buf bytes.Buffer
	logger, closeFn := NewLoggerWithWriter(cfg, &buf)
	logger.Info("dropped")
	logger.With(String("component", "cache")).Warn("capacity reached", Int("capacity", 3))
	logger.Errorf("sweep failed: %d", 42)
	closeFn()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "capacity reached", entry["msg"])
	require.Equal(t, "cache", entry["component"])
	require.EqualValues(t, 3, entry["capacity"])
	require.EqualValues(t, os.Getpid(), entry["pid"])
	require.Contains(t, entry, "time")

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	require.Equal(t, "sweep failed: 42", entry["msg"])
}

func TestLogger_Text(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = FormatText
	cfg.NoColor = true

	var buf bytes.Buffer
	logger, closeFn := NewLoggerWithWriter(cfg, &buf)
	logger.Error("load failed", Error(errors.New("backend is down")))
	closeFn()

	require.Contains(t, buf.String(), "load failed")
	require.Contains(t, buf.String(), "backend is down")
}

func TestLogger_AtLevel(t *testing.T) {
	cfg := NewDefaultConfig()
	var buf bytes.Buffer
	logger, closeFn := NewLoggerWithWriter(cfg, &buf)

	called := false
	logger.AtLevel(LevelDebug, func(LogFunc) { called = true })
	logger.WithLevel(LevelError).Warn("dropped")
	closeFn()

	require.False(t, called)
	require.Empty(t, buf.String())
}

func TestLogger_FileOutput(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = OutputFile
	cfg.File.Path = filepath.Join(t.TempDir(), "app-{{pid}}.log")

	logger, closeFn := NewLogger(cfg)
	logger.Info("written to file")
	closeFn()

	data, err := os.ReadFile(strings.ReplaceAll(cfg.File.Path, "{{pid}}", strconv.Itoa(os.Getpid())))
	require.NoError(t, err)
	require.Contains(t, string(data), "written to file")
}

func TestExpandFilePath(t *testing.T) {
	start := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	require.Equal(t, "/var/log/lrucached-202403051407-42.log",
		expandFilePath("/var/log/lrucached-{{starttime}}-{{pid}}.log", start, 42))
	require.Equal(t, "plain.log", expandFilePath("plain.log", start, 42))
}

func TestDurationIn(t *testing.T) {
	f := DurationIn(1500*time.Millisecond, time.Millisecond)
	require.Equal(t, "duration", f.Key)
	require.EqualValues(t, 1500, f.Int)
}

func TestNewDisabledLogger(t *testing.T) {
	logger := NewDisabledLogger()
	logger.Error("nothing happens")
	logger.With(Bool("ok", true)).Infof("%s", "still nothing")
}
