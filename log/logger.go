/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package log provides a structured logger built on top of logf.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ssgreg/logf"
)

// Field hold data of a specific field.
type Field = logf.Field

// CloseFunc flushes and closes the asynchronous log writer.
type CloseFunc logf.ChannelWriterCloseFunc

// LogFunc allows logging a message with a bound level.
// nolint: revive
type LogFunc = logf.LogFunc

// Field constructors.
var (
	Error    = logf.Error
	String   = logf.String
	Strings  = logf.Strings
	Int      = logf.Int
	Int64    = logf.Int64
	Uint64   = logf.Uint64
	Float64  = logf.Float64
	Duration = logf.Duration
	Bool     = logf.Bool
	Any      = logf.Any
)

// DurationIn returns a new Field with the "duration" as key and received duration in unit as value (int64).
func DurationIn(val, unit time.Duration) Field {
	return Int64("duration", val.Nanoseconds()/unit.Nanoseconds())
}

// FieldLogger is an interface for loggers which writes logs in structured format.
type FieldLogger interface {
	With(...Field) FieldLogger

	Debug(string, ...Field)
	Info(string, ...Field)
	Warn(string, ...Field)
	Error(string, ...Field)

	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warnf(string, ...interface{})
	Errorf(string, ...interface{})

	AtLevel(Level, func(LogFunc))
	WithLevel(level Level) FieldLogger
}

// LogfAdapter adapts logf.Logger to FieldLogger interface.
type LogfAdapter struct {
	Logger *logf.Logger
}

var _ FieldLogger = (*LogfAdapter)(nil)

// NewDisabledLogger returns a new logger that logs nothing.
func NewDisabledLogger() FieldLogger {
	return &LogfAdapter{logf.NewDisabledLogger()}
}

// NewLogger returns a new logger configured according to cfg.
// Entries are written asynchronously, the returned CloseFunc must be called to flush them.
func NewLogger(cfg *Config) (FieldLogger, CloseFunc) {
	return NewLoggerWithWriter(cfg, outputWriter(cfg))
}

// NewLoggerWithWriter is like NewLogger but writes entries to w regardless of cfg.Output.
func NewLoggerWithWriter(cfg *Config, w io.Writer) (FieldLogger, CloseFunc) {
	channel, closeFn := logf.NewChannelWriter(logf.ChannelWriterConfig{
		Appender:          newAppender(cfg, w),
		EnableSyncOnError: true,
	})
	logger := logf.NewLogger(logfLevel(cfg.Level), channel).With(logf.Int("pid", os.Getpid()))
	if cfg.AddCaller {
		logger = logger.WithCaller().WithCallerSkip(1) // the adapter's frame
	}
	return &LogfAdapter{Logger: logger}, CloseFunc(closeFn)
}

// With returns a new logger with the given additional fields.
func (l *LogfAdapter) With(fs ...Field) FieldLogger {
	return &LogfAdapter{l.Logger.With(fs...)}
}

// Debug logs message at "debug" level.
func (l *LogfAdapter) Debug(s string, fields ...Field) {
	l.Logger.Debug(s, fields...)
}

// Info logs message at "info" level.
func (l *LogfAdapter) Info(s string, fields ...Field) {
	l.Logger.Info(s, fields...)
}

// Warn logs message at "warn" level.
func (l *LogfAdapter) Warn(s string, fields ...Field) {
	l.Logger.Warn(s, fields...)
}

// Error logs message at "error" level.
func (l *LogfAdapter) Error(s string, fields ...Field) {
	l.Logger.Error(s, fields...)
}

func (l *LogfAdapter) Debugf(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *LogfAdapter) Infof(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *LogfAdapter) Warnf(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *LogfAdapter) Errorf(format string, args ...interface{}) { l.logf(LevelError, format, args...) }

func (l *LogfAdapter) logf(level Level, format string, args ...interface{}) {
	l.AtLevel(level, func(write LogFunc) {
		write(fmt.Sprintf(format, args...))
	})
}

// AtLevel calls the given fn if logging a message at the specified level
// is enabled, passing a LogFunc with the bound level.
func (l *LogfAdapter) AtLevel(level Level, fn func(logFunc LogFunc)) {
	l.Logger.AtLevel(logfLevel(level), fn)
}

// WithLevel returns a new logger with additional level check.
// It only makes sense to increase the level, messages below either level are dropped.
func (l *LogfAdapter) WithLevel(level Level) FieldLogger {
	return &LogfAdapter{Logger: l.Logger.WithLevel(logfLevel(level))}
}

var logfLevels = map[Level]logf.Level{
	LevelError: logf.LevelError,
	LevelWarn:  logf.LevelWarn,
	LevelInfo:  logf.LevelInfo,
	LevelDebug: logf.LevelDebug,
}

// logfLevel maps unknown levels to info.
func logfLevel(level Level) logf.Level {
	if lvl, ok := logfLevels[level]; ok {
		return lvl
	}
	return logf.LevelInfo
}
