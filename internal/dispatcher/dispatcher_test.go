package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Request
	d.Register("layout", func(_ context.Context, r Request) (any, error) {
		got = r
		return "result", nil
	})

	result, err := d.Dispatch(context.Background(), Request{Command: "layout", Payload: json.RawMessage(`[]`)})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
	if string(got.Payload) != "[]" {
		t.Errorf("expected payload to reach handler, got %q", got.Payload)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected dispatch to stamp the request")
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), Request{Command: "teleport"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "teleport") {
		t.Errorf("expected command name in error, got %v", err)
	}
}

func TestDispatcher_PropagatesContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("solve", func(ctx context.Context, _ Request) (any, error) {
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Dispatch(ctx, Request{Command: "solve"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("encode", func(context.Context, Request) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(context.Background(), Request{Command: "encode", Payload: json.RawMessage(`{}`)})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) != 2 {
		t.Errorf("expected 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerCarriesSession(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("board.snapshot", func(ctx context.Context, _ Request) (any, error) {
		if got := SessionFrom(ctx); got != "sess-1" {
			t.Errorf("handler saw session %q", got)
		}
		return nil, nil
	}, Logged())

	d.Dispatch(WithSession(context.Background(), "sess-1"), Request{Command: "board.snapshot"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	for _, msg := range logger.messages {
		if !strings.Contains(msg, "session sess-1") {
			t.Errorf("log line without session: %s", msg)
		}
	}
	if SessionFrom(context.Background()) != "" {
		t.Error("expected empty session on a bare context")
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("decode", func(context.Context, Request) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(context.Background(), Request{Command: "decode"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	noop := func(context.Context, Request) (any, error) { return nil, nil }
	d.Register("types", noop)
	d.Register("export", noop)
	d.Register("layout", noop)

	if !d.HasHandler("types") {
		t.Error("expected handler to exist")
	}
	if d.HasHandler("share") {
		t.Error("expected handler to not exist")
	}

	got := strings.Join(d.Commands(), ",")
	if got != "export,layout,types" {
		t.Errorf("unexpected commands %q", got)
	}
}

func TestDispatcher_ConcurrentDispatch(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var mu sync.Mutex
	count := 0
	d.Register("layout", func(context.Context, Request) (any, error) {
		mu.Lock()
		count++
		mu.Unlock()
		return nil, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), Request{Command: "layout"})
		}()
	}
	wg.Wait()

	if count != 20 {
		t.Errorf("expected 20 calls, got %d", count)
	}
}

func TestDispatcher_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	d, _ := newTestDispatcher(t)
	d.Register("ok", func(context.Context, Request) (any, error) { return 1, nil })
	d.Register("bad", func(context.Context, Request) (any, error) { return nil, errors.New("nope") })

	ctx := context.Background()
	d.Dispatch(ctx, Request{Command: "ok"})
	d.Dispatch(ctx, Request{Command: "ok"})
	d.Dispatch(ctx, Request{Command: "bad"})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}

	if totals["dispatcher.requests.processed"] != 2 {
		t.Errorf("expected 2 processed, got %d", totals["dispatcher.requests.processed"])
	}
	if totals["dispatcher.requests.failed"] != 1 {
		t.Errorf("expected 1 failed, got %d", totals["dispatcher.requests.failed"])
	}
}
