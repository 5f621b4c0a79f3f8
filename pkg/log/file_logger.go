package log

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileOption configures the segment header written by NewFileLogger.
type FileOption func(*Header)

// WithTool records the writing program in the segment header.
func WithTool(name string) FileOption {
	return func(h *Header) { h.Tool = name }
}

// WithServer records the server base URL in the segment header.
func WithServer(url string) FileOption {
	return func(h *Header) { h.Server = url }
}

// FileLogger appends events to a capture file. Every FileLogger starts a new
// segment. It is safe for concurrent use.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	header Header
	events int
	err    error
	closed bool
}

// NewFileLogger opens path for appending, creating it with mode 0644, and
// writes a segment header.
func NewFileLogger(path string, opts ...FileOption) (*FileLogger, error) {
	h := Header{Version: FormatVersion, Opened: time.Now().UTC(), Tool: filepath.Base(os.Args[0])}
	h.Host, _ = os.Hostname()
	for _, opt := range opts {
		opt(&h)
	}
	data, err := EncodeHeader(h)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, err
	}
	return &FileLogger{file: f, header: h}, nil
}

// Log appends an event. Failures do not reach the caller; the first one is
// kept for Err and stops further writes.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.err != nil {
		return
	}
	data, err := EncodeEvent(event)
	if err == nil {
		_, err = l.file.Write(data)
	}
	if err != nil {
		l.err = err
		return
	}
	l.events++
}

// Header returns the header of the segment this logger writes.
func (l *FileLogger) Header() Header {
	return l.header
}

// Events returns the number of events written.
func (l *FileLogger) Events() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events
}

// Err returns the first write failure, if any.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close closes the file. Later calls to Log and Close do nothing.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
