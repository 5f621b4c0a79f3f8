// Package log provides protocol capture for the MP client.
//
// This package defines the Logger interface and Event types for recording
// every HTTP exchange with an MP server, session and subscription state
// changes, and errors. It is separate from operational logging (slog):
// protocol capture is a complete machine-readable trace for debugging and
// analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For field captures: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/mp/client.mplog", log.WithServer(cfg.URL))
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Exchanges are captured at two layers:
//   - Transport: HTTP request and response (status, sizes, body excerpt)
//   - Envelope: the decoded response envelope (code, server message)
//
// State changes and errors have dedicated event types.
//
// # File Format
//
// Capture files (.mplog) are a stream of CBOR items. Each FileLogger opens a
// segment with a header record (tag HeaderTag: format version, open time,
// tool, server, host) and appends events as integer-keyed maps. Reader
// validates headers and yields events only. The mp-log tool views, filters
// and summarizes captures.
package log
