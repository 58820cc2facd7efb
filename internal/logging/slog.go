package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName identifies boplot log records in OTel backends.
const ServiceName = "boplot"

// replaced in tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG", "TRACE":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Output is a named text destination for log records.
type Output struct {
	Name   string
	Writer io.Writer
}

// Setup initializes the logging system.
//
// Every output with a writer receives a text copy of each record; with no
// usable output the records go to stdout. A non-nil provider adds the OTel
// bridge as one more sink.
func (m *SlogManager) Setup(level string, provider *sdklog.LoggerProvider, outputs ...Output) {
	lvl := parseLevel(level)
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var sinks []Sink
	for _, o := range outputs {
		if o.Writer != nil {
			sinks = append(sinks, Sink{Name: o.Name, Handler: slog.NewTextHandler(o.Writer, handlerOpts)})
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, Sink{Name: "stdout", Handler: slog.NewTextHandler(osStdout, handlerOpts)})
	}
	if provider != nil {
		sinks = append(sinks, Sink{Name: "otel", Handler: otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))})
	}

	multi := NewMultiHandler(sinks...)
	m.logger = slog.New(multi)
	m.logger.Info("Logging initialized", "level", level, "sinks", multi.Names())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
