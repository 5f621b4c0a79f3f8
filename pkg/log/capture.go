package log

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// A capture file is a sequence of segments. Each segment starts with a
// header record, written when a FileLogger opens the file, followed by
// events. Headers are CBOR items wrapped in HeaderTag so they can be told
// apart from event maps without a second framing layer.
const (
	// FormatVersion is the capture format written by this package.
	FormatVersion = 1

	// HeaderTag is the CBOR tag number of segment headers ("MP").
	HeaderTag uint64 = 0x4d50
)

var (
	// ErrNotCapture is returned for files that do not start with a header.
	ErrNotCapture = errors.New("not an mplog capture")

	// ErrUnsupportedVersion is returned for headers with an unknown version.
	ErrUnsupportedVersion = errors.New("unsupported capture version")
)

// Header opens a capture segment.
type Header struct {
	Version int       `cbor:"1,keyasint"`
	Opened  time.Time `cbor:"2,keyasint"`

	// Tool is the program that wrote the segment.
	Tool string `cbor:"3,keyasint,omitempty"`

	// Server is the MP server base URL, when known at open time.
	Server string `cbor:"4,keyasint,omitempty"`

	Host string `cbor:"5,keyasint,omitempty"`
}

var (
	logEncMode cbor.EncMode
	logDecMode cbor.DecMode
)

func init() {
	var err error

	logEncMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture encoder mode: %v", err))
	}

	logDecMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR with integer keys.
func EncodeEvent(event Event) ([]byte, error) {
	return logEncMode.Marshal(event)
}

// DecodeEvent decodes one CBOR event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := logDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// EncodeHeader encodes h as a tagged header record.
func EncodeHeader(h Header) ([]byte, error) {
	content, err := logEncMode.Marshal(h)
	if err != nil {
		return nil, err
	}
	return logEncMode.Marshal(cbor.RawTag{Number: HeaderTag, Content: content})
}

// DecodeHeader decodes a tagged header record and checks its version.
func DecodeHeader(data []byte) (Header, error) {
	var tag cbor.RawTag
	if err := logDecMode.Unmarshal(data, &tag); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrNotCapture, err)
	}
	if tag.Number != HeaderTag {
		return Header{}, fmt.Errorf("%w: tag %d", ErrNotCapture, tag.Number)
	}
	var h Header
	if err := logDecMode.Unmarshal(tag.Content, &h); err != nil {
		return Header{}, fmt.Errorf("header: %w", err)
	}
	if h.Version < 1 || h.Version > FormatVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// isTagged reports whether raw is a CBOR tag item (major type 6).
func isTagged(raw []byte) bool {
	return len(raw) > 0 && raw[0]>>5 == 6
}

// NewDecoder returns a CBOR decoder using the capture decoding options.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return logDecMode.NewDecoder(r)
}
