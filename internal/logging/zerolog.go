package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseZerologLevel converts a config log level to a zerolog.Level.
func ParseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the structured logger handed to the storage and metrics
// layers. Console output is colored, the file copy is not, and every extra
// writer receives raw JSON lines (GELF expects one JSON document per write).
func NewZerolog(level string, console, file io.Writer, extra ...io.Writer) zerolog.Logger {
	var writers []io.Writer
	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339})
	}
	if file != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: file, TimeFormat: time.RFC3339, NoColor: true})
	}
	for _, w := range extra {
		if w != nil {
			writers = append(writers, w)
		}
	}
	if len(writers) == 0 {
		return zerolog.Nop()
	}

	return zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseZerologLevel(level)).
		With().Timestamp().Logger()
}
