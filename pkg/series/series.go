package series

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"time"
)

// Wire format constants.
const (
	// RecordSize is the size of one encoded sample.
	RecordSize = 12

	// EpochOffsetTicks is the tick distance between 0001-01-01 and 1970-01-01 UTC.
	EpochOffsetTicks int64 = 621355968000000000

	// TicksPerMillisecond is the number of 100 ns ticks in one millisecond.
	TicksPerMillisecond int64 = 10000
)

// Decode errors. In permissive mode they are reported as warnings.
var (
	ErrPartialRecord    = errors.New("payload length is not a multiple of the record size")
	ErrMalformedPayload = errors.New("malformed base64 payload")
)

// Sample is one decoded (timestamp, value) pair.
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Decoder converts payloads into sample series.
// The zero value is a permissive decoder with no timezone offset.
type Decoder struct {
	// Offset is added to every decoded timestamp.
	Offset time.Duration

	// Strict turns partial records and malformed base64 into errors.
	Strict bool
}

// Decode decodes a base64 payload. An empty or blank payload yields an empty series.
func (d Decoder) Decode(payload string) (*Series, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return &Series{offset: d.Offset}, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		if d.Strict {
			return nil, err
		}
		s, _ := d.DecodeBytes(data)
		s.warnings = append([]error{err}, s.warnings...)
		return s, nil
	}
	return d.DecodeBytes(data)
}

// DecodeBytes decodes raw record bytes. The slice is retained, not copied.
func (d Decoder) DecodeBytes(data []byte) (*Series, error) {
	s := &Series{data: data, offset: d.Offset}
	if rem := len(data) % RecordSize; rem != 0 {
		err := fmt.Errorf("%w: %d trailing bytes", ErrPartialRecord, rem)
		if d.Strict {
			return nil, err
		}
		s.warnings = append(s.warnings, err)
	}
	return s, nil
}

// Series is a decoded payload. Iterating it is lazy and may be repeated.
type Series struct {
	data     []byte
	offset   time.Duration
	warnings []error
}

// Len returns the number of samples, counting a trailing partial record.
func (s *Series) Len() int {
	return (len(s.data) + RecordSize - 1) / RecordSize
}

// Warnings returns the recoverable problems found while decoding.
func (s *Series) Warnings() []error {
	return s.warnings
}

// All yields the samples in buffer order.
func (s *Series) All() iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		var rec [RecordSize]byte
		for i := 0; i < len(s.data); i += RecordSize {
			n := copy(rec[:], s.data[i:])
			clear(rec[n:])
			if !yield(decodeRecord(rec, s.offset)) {
				return
			}
		}
	}
}

// Samples collects All into a slice.
func (s *Series) Samples() []Sample {
	out := make([]Sample, 0, s.Len())
	for sample := range s.All() {
		out = append(out, sample)
	}
	return out
}

func decodeRecord(rec [RecordSize]byte, offset time.Duration) Sample {
	ticks := int64(binary.LittleEndian.Uint64(rec[0:8]))
	value := math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12]))
	return Sample{
		Timestamp: TimeFromTicks(ticks, offset),
		Value:     float64(value),
	}
}

// TimeFromTicks converts .NET ticks to a UTC time, truncated to milliseconds.
func TimeFromTicks(ticks int64, offset time.Duration) time.Time {
	ms := (ticks-EpochOffsetTicks)/TicksPerMillisecond + offset.Milliseconds()
	return time.UnixMilli(ms).UTC()
}

// TicksFromTime is the inverse of TimeFromTicks for millisecond-aligned times.
func TicksFromTime(t time.Time, offset time.Duration) int64 {
	ms := t.UnixMilli() - offset.Milliseconds()
	return ms*TicksPerMillisecond + EpochOffsetTicks
}

// LocalOffset returns UTC minus local time at t. Servers that encode local
// wall-clock ticks need this offset to produce UTC instants.
func LocalOffset(t time.Time) time.Duration {
	_, sec := t.Local().Zone()
	return -time.Duration(sec) * time.Second
}
