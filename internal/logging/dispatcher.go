package logging

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DispatcherLogger feeds dispatcher request logs into the zerolog pipeline.
// Lines are tagged component=dispatcher; the command and live session keys
// the dispatcher passes become top-level string fields so Graylog can index
// them.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger wraps logger for use by dispatcher.New.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	appendPairs(l.logger.Debug(), keysAndValues).Msg(msg)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	appendPairs(l.logger.Info(), keysAndValues).Msg(msg)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	appendPairs(l.logger.Error(), keysAndValues).Msg(msg)
}

// appendPairs writes key/value pairs onto e in order. Durations are logged
// in milliseconds under "<key>Ms"; a trailing key without a value and
// non-string keys are dropped.
func appendPairs(e *zerolog.Event, kv []any) *zerolog.Event {
	if e == nil {
		return e
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			e = e.Str(key, v)
		case int:
			e = e.Int(key, v)
		case int64:
			e = e.Int64(key, v)
		case bool:
			e = e.Bool(key, v)
		case time.Duration:
			e = e.Float64(key+"Ms", float64(v)/float64(time.Millisecond))
		case error:
			e = e.AnErr(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}
