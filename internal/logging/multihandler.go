package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Sink is one named branch of a MultiHandler: the session file, stderr,
// Graylog or the OTel bridge.
type Sink struct {
	Name    string
	Handler slog.Handler
}

// MultiHandler fans log records out to every sink enabled for the record's
// level. Failing sinks do not stop the others; their errors come back
// joined and prefixed with the sink name.
type MultiHandler struct {
	sinks []Sink
}

// NewMultiHandler drops sinks without a handler.
func NewMultiHandler(sinks ...Sink) *MultiHandler {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Handler != nil {
			kept = append(kept, s)
		}
	}
	return &MultiHandler{sinks: kept}
}

// Names lists the sinks in fan-out order.
func (m *MultiHandler) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name
	}
	return names
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.Handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range m.sinks {
		if !s.Handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	sinks := make([]Sink, len(m.sinks))
	for i, s := range m.sinks {
		sinks[i] = Sink{Name: s.Name, Handler: fn(s.Handler)}
	}
	return &MultiHandler{sinks: sinks}
}
