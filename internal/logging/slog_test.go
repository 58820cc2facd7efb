package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// failingWriter stands in for an unreachable Graylog endpoint.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("graylog unreachable") }

func TestSetup_OneShotCommandLogsToStderrOnly(t *testing.T) {
	restore := captureStdout(t)

	var stderr bytes.Buffer
	m := NewSlogManager()
	m.Setup("info", nil, Output{Name: "stderr", Writer: &stderr})
	m.Logger().Info("decoded configuration", "players", 3)

	assert.Empty(t, restore(), "stdout carries command output only")
	assert.Contains(t, stderr.String(), "decoded configuration")
	assert.Contains(t, stderr.String(), "players=3")
	assert.Contains(t, stderr.String(), "sinks=[stderr]")
}

func TestSetup_ServeWritesSessionFileAndStderr(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)
	f, err := OpenLogFile(filepath.Join(dir, "logs"), "boplot", start)
	require.NoError(t, err)

	var stderr bytes.Buffer
	m := NewSlogManager()
	m.Setup("debug", nil, Output{Name: "file", Writer: f}, Output{Name: "stderr", Writer: &stderr})
	m.Logger().Debug("live session opened", "session", "a1b2")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(dir, "logs", "boplot.20240301_183000.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "session=a1b2")
	assert.Contains(t, string(data), "sinks=\"[file stderr]\"")
	assert.Contains(t, stderr.String(), "live session opened")
}

func TestSetup_GraylogCopyReceivesRecords(t *testing.T) {
	var file, graylog bytes.Buffer
	m := NewSlogManager()
	m.Setup("info", nil, Output{Name: "graylog", Writer: &graylog}, Output{Name: "file", Writer: &file})

	m.Logger().Info("shared build stored", "id", "abc")

	assert.Contains(t, file.String(), "shared build stored")
	assert.Contains(t, graylog.String(), "id=abc")
}

func TestSetup_DeadGraylogDoesNotSilenceFile(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup("info", nil, Output{Name: "graylog", Writer: failingWriter{}}, Output{Name: "file", Writer: &file})

	m.Logger().Error("engine timed out", "command", "solve")

	assert.Contains(t, file.String(), "engine timed out")
}

func TestSetup_NoOutputsFallsBackToStdout(t *testing.T) {
	restore := captureStdout(t)

	m := NewSlogManager()
	m.Setup("info", nil, Output{Name: "file"})
	m.Logger().Info("hello console")

	out := restore()
	assert.Contains(t, out, "hello console")
	assert.Contains(t, out, "sinks=[stdout]")
}

func TestSetup_LevelFilters(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"trace", true, true},
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(tt.level, nil, Output{Name: "stderr", Writer: &buf})

			m.Logger().Debug("board cleared")
			m.Logger().Info("board loaded")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("board cleared")))
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("board loaded")))
		})
	}
}

func TestSetup_RerunDetachesOldOutputs(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()

	m.Setup("info", nil, Output{Name: "stderr", Writer: &first})
	m.Setup("info", nil, Output{Name: "stderr", Writer: &second})
	m.Logger().Info("after reload")

	assert.NotContains(t, first.String(), "after reload")
	assert.Contains(t, second.String(), "after reload")
}

func TestSetup_OTelSinkAndFlush(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup("info", provider, Output{Name: "file", Writer: &buf})
	m.Logger().Info("timeline computed")

	assert.Contains(t, buf.String(), "sinks=\"[file otel]\"")
	assert.Contains(t, buf.String(), "timeline computed")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestSlogManager_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestContextHandler_ServerAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	var clients int64
	logger := WithContext(base, func() []slog.Attr {
		return []slog.Attr{slog.String("storage", "buntdb"), slog.Int64("wsClients", clients)}
	})

	logger.Info("Starting server")
	clients = 2
	logger.With("route", "/api/share").WithGroup("req").Info("request rejected", "status", 400)

	out := buf.String()
	assert.Contains(t, out, "storage=buntdb")
	assert.Contains(t, out, "wsClients=0")
	assert.Contains(t, out, "wsClients=2")
	assert.Contains(t, out, "route=/api/share")
	assert.Contains(t, out, "req.status=400")
}

func TestMultiHandler_NamesSkipEmptySinks(t *testing.T) {
	h := slog.NewTextHandler(&bytes.Buffer{}, nil)
	multi := NewMultiHandler(Sink{Name: "file", Handler: h}, Sink{Name: "graylog"}, Sink{Name: "stderr", Handler: h})

	assert.Equal(t, []string{"file", "stderr"}, multi.Names())
	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_EnabledByAnySink(t *testing.T) {
	file := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	stderr := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	fileOnly := NewMultiHandler(Sink{Name: "file", Handler: file})
	assert.False(t, fileOnly.Enabled(context.Background(), slog.LevelDebug))

	both := NewMultiHandler(Sink{Name: "file", Handler: file}, Sink{Name: "stderr", Handler: stderr})
	assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))
}

func TestMultiHandler_ErrorsNameTheSink(t *testing.T) {
	var file bytes.Buffer
	multi := NewMultiHandler(
		Sink{Name: "graylog", Handler: slog.NewTextHandler(failingWriter{}, nil)},
		Sink{Name: "file", Handler: slog.NewTextHandler(&file, nil)},
	)

	err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelWarn, "share rejected", 0))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "graylog: graylog unreachable")
	assert.Contains(t, file.String(), "share rejected")
}

func TestMultiHandler_DerivedHandlersKeepNames(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(Sink{Name: "file", Handler: slog.NewTextHandler(&buf, nil)})

	assert.Same(t, multi, multi.WithGroup(""))

	derived, ok := multi.WithAttrs([]slog.Attr{slog.String("component", "editor")}).WithGroup("edit").(*MultiHandler)
	require.True(t, ok)
	assert.Equal(t, []string{"file"}, derived.Names())

	slog.New(derived).Info("entry added", "slot", 1)
	assert.Contains(t, buf.String(), "component=editor")
	assert.Contains(t, buf.String(), "edit.slot=1")
}

// captureStdout points osStdout at a pipe and returns a function that
// restores it and yields what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
