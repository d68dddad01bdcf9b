/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ssgreg/logf"
	"github.com/ssgreg/logftext"
	"gopkg.in/natefinch/lumberjack.v2"
)

const bytesInMegabyte = 1024 * 1024

// outputWriter opens the destination selected by cfg.Output. Files are rotated by lumberjack.
func outputWriter(cfg *Config) io.Writer {
	switch cfg.Output {
	case OutputFile:
		rot := cfg.File.Rotation
		return &lumberjack.Logger{
			Filename:   expandFilePath(cfg.File.Path, time.Now(), os.Getpid()),
			MaxSize:    int(rot.MaxSize / bytesInMegabyte),
			MaxBackups: rot.MaxBackups,
			MaxAge:     rot.MaxAgeDays,
			Compress:   rot.Compress,
			LocalTime:  rot.LocalTimeInNames,
		}
	case OutputStderr:
		return os.Stderr
	default:
		return os.Stdout
	}
}

// newAppender encodes entries as JSON or colored text.
func newAppender(cfg *Config, w io.Writer) logf.Appender {
	var encodeErr logf.ErrorEncoder
	if cfg.Error.NoVerbose || cfg.Error.VerboseSuffix != "" {
		encodeErr = logf.NewErrorEncoder(logf.ErrorEncoderConfig{
			NoVerboseField:     cfg.Error.NoVerbose,
			VerboseFieldSuffix: cfg.Error.VerboseSuffix,
		})
	}
	if cfg.Format != FormatText {
		return logf.NewWriteAppender(w, logf.NewJSONEncoder(logf.JSONEncoderConfig{
			FieldKeyTime: "time",
			EncodeTime:   logf.RFC3339NanoTimeEncoder,
			EncodeError:  encodeErr,
		}))
	}
	noColor := cfg.NoColor
	return logftext.NewAppender(w, logftext.EncoderConfig{
		NoColor:     &noColor,
		EncodeTime:  logf.RFC3339NanoTimeEncoder,
		EncodeError: encodeErr,
	})
}

// expandFilePath substitutes {{starttime}} and {{pid}} placeholders.
func expandFilePath(path string, start time.Time, pid int) string {
	return strings.NewReplacer(
		"{{starttime}}", start.Format("200601021504"),
		"{{pid}}", strconv.Itoa(pid),
	).Replace(path)
}
