package log

import (
	"errors"
	"io"
)

// Logger is the interface applications implement to receive protocol log events.
// Pass nil or NoopLogger to disable logging.
type Logger interface {
	// Log records a protocol event. Implementations must be thread-safe.
	// The event should be processed quickly or queued; blocking affects performance.
	Log(event Event)
}

// NoopLogger discards all events. Use when logging is disabled.
// NoopLogger is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}

// MultiLogger fans events out to several loggers, typically a FileLogger and
// a SlogAdapter.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger returns a MultiLogger over loggers. Nil and NoopLogger
// members are dropped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		m.Add(l)
	}
	return m
}

// Add appends l unless it is nil or a NoopLogger. Not safe for use while
// events are being logged.
func (m *MultiLogger) Add(l Logger) {
	switch l.(type) {
	case nil, NoopLogger, *NoopLogger:
		return
	}
	m.loggers = append(m.loggers, l)
}

// Len returns the number of member loggers.
func (m *MultiLogger) Len() int {
	return len(m.loggers)
}

// Log passes event to every member.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Close closes every member that is an io.Closer.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if c, ok := l.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

var _ Logger = (*MultiLogger)(nil)

// MaxBodySize is the largest body excerpt kept in an ExchangeEvent.
const MaxBodySize = 4096

// TruncateBody copies at most MaxBodySize bytes of body and reports whether
// anything was cut.
func TruncateBody(body []byte) ([]byte, bool) {
	if len(body) <= MaxBodySize {
		return append([]byte(nil), body...), false
	}
	return append([]byte(nil), body[:MaxBodySize]...), true
}
