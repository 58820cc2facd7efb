// Package dispatcher routes named requests, such as the envelopes received
// on the live websocket, to the service handlers registered for them.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrUnknownCommand is returned by Dispatch for unregistered commands.
var ErrUnknownCommand = errors.New("unknown command")

// Request is one named call with its raw JSON payload.
type Request struct {
	Command   string
	Payload   json.RawMessage
	Timestamp time.Time
}

// HandlerFunc processes a request and returns a JSON-serializable result.
type HandlerFunc func(context.Context, Request) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(o *options) {
		o.logged = true
	}
}

// Dispatcher routes requests to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   Logger

	processed metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}

	m := meter()

	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.requests.processed",
		metric.WithDescription("Total requests handled successfully"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.requests.failed",
		metric.WithDescription("Total requests whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	d.duration, err = m.Float64Histogram(
		"dispatcher.requests.duration",
		metric.WithDescription("Handler latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command, replacing any previous one.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	handler := h
	if o.logged {
		handler = d.withLogging(command, handler)
	}

	d.mu.Lock()
	d.handlers[command] = handler
	d.mu.Unlock()
}

// Dispatch routes a request to its registered handler.
func (d *Dispatcher) Dispatch(ctx context.Context, r Request) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[r.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, r.Command)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	start := time.Now()
	result, err := h(ctx, r)

	attrs := metric.WithAttributes(attribute.String("command", r.Command))
	d.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	if err != nil {
		d.failed.Add(ctx, 1, attrs)
	} else {
		d.processed.Add(ctx, 1, attrs)
	}
	return result, err
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[command]
	return ok
}

// Commands lists the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

type sessionKey struct{}

// WithSession tags ctx with the live session a request arrived on.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session set by WithSession, or "".
func SessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, r Request) (any, error) {
		start := time.Now()
		kv := []any{"command", command}
		if id := SessionFrom(ctx); id != "" {
			kv = append(kv, "session", id)
		}
		d.logger.Debug("handling request", append(kv, "payloadBytes", len(r.Payload))...)

		result, err := h(ctx, r)

		if err != nil {
			d.logger.Error("request failed", append(kv, "duration", time.Since(start), "error", err)...)
		} else {
			d.logger.Debug("request complete", append(kv, "duration", time.Since(start))...)
		}

		return result, err
	}
}
