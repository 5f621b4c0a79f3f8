// Package timestamp reads the date-time strings sent by the MP server. The
// server is not consistent: most values are RFC 3339, but some carry no zone
// or no time part at all.
package timestamp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrFormat is returned for strings no accepted layout matches.
var ErrFormat = errors.New("unsupported time format")

// Layouts without a zone. Fractional seconds are accepted after the seconds
// field without being named in the layout.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse parses s. Strings with a zone keep it; strings without one are read
// in loc.
func Parse(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrFormat, s)
}

// Time is a time.Time that decodes any format Parse accepts. Zone-less
// values are read in the local zone. It encodes as RFC 3339.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler. null and "" decode to the zero
// time.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	v, err := Parse(s, time.Local)
	if err != nil {
		return err
	}
	t.Time = v
	return nil
}

// Ptr returns the time as a pointer, or nil when t is nil or zero.
func (t *Time) Ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// Times converts a decoded slice to plain times, dropping zero entries. A nil
// slice stays nil.
func Times(in []Time) []time.Time {
	if in == nil {
		return nil
	}
	out := make([]time.Time, 0, len(in))
	for _, t := range in {
		if !t.IsZero() {
			out = append(out, t.Time)
		}
	}
	return out
}
