package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	SessionID string
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// Endpoint matches the request path of exchange events only.
	Endpoint string

	// Server matches the server base URL.
	Server string
}

// Match reports whether event passes every set criterion.
func (f Filter) Match(event Event) bool {
	switch {
	case f.SessionID != "" && event.SessionID != f.SessionID:
		return false
	case f.Server != "" && event.Server != f.Server:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	case f.Endpoint != "" && (event.Exchange == nil || event.Exchange.Endpoint != f.Endpoint):
		return false
	}
	return true
}

// Reader streams events from a capture file, skipping segment headers.
type Reader struct {
	file     *os.File
	decoder  *cbor.Decoder
	filter   Filter
	header   Header
	segments int
}

// NewReader opens a capture file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file whose Next returns only events
// matching filter. The first record must be a segment header unless the file
// is empty.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{file: f, decoder: NewDecoder(f), filter: filter}

	raw, err := r.record()
	if errors.Is(err, io.EOF) {
		return r, nil
	}
	if err == nil && !isTagged(raw) {
		err = ErrNotCapture
	}
	if err == nil {
		err = r.startSegment(raw)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		raw, err := r.record()
		if err != nil {
			return Event{}, err
		}
		if isTagged(raw) {
			if err := r.startSegment(raw); err != nil {
				return Event{}, err
			}
			continue
		}

		event, err := DecodeEvent(raw)
		if err != nil {
			return Event{}, fmt.Errorf("segment %d: %w", r.segments, err)
		}
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Header returns the header of the current segment. ok is false for an
// empty file.
func (r *Reader) Header() (h Header, ok bool) {
	return r.header, r.segments > 0
}

// Segments returns the number of segment headers read so far.
func (r *Reader) Segments() int {
	return r.segments
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

func (r *Reader) record() (cbor.RawMessage, error) {
	var raw cbor.RawMessage
	if err := r.decoder.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (r *Reader) startSegment(raw []byte) error {
	h, err := DecodeHeader(raw)
	if err != nil {
		return err
	}
	r.header = h
	r.segments++
	return nil
}
