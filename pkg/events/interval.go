package events

import (
	"iter"
	"time"

	"github.com/sd400mp/mp-go/pkg/series"
)

// GroupKey identifies the series an interval was reconstructed from.
type GroupKey struct {
	EquipmentID string
	TestPointID string
	Tag         string
}

// Interval is a run of equal states.
type Interval struct {
	EquipmentID string
	TestPointID string
	Tag         string

	State int
	Start time.Time
	End   time.Time

	// Closed is set once a later state change ends the interval. End is
	// meaningful only when Closed is true.
	Closed bool

	// Satellite is the correlated satellite value, if any.
	Satellite *float64
}

// Open reports whether the interval is still active.
func (i Interval) Open() bool {
	return !i.Closed
}

// Duration returns the interval length. Open intervals are measured up to now.
func (i Interval) Duration(now time.Time) time.Duration {
	if i.Open() {
		return now.Sub(i.Start)
	}
	return i.End.Sub(i.Start)
}

// SatelliteIndex maps the millisecond timestamp of every sample to its value.
// Later samples overwrite earlier ones with the same timestamp.
func SatelliteIndex(samples iter.Seq[series.Sample]) map[int64]float64 {
	index := make(map[int64]float64)
	for s := range samples {
		index[s.Timestamp.UnixMilli()] = s.Value
	}
	return index
}

// Reconstruct turns a state series into intervals. The sample value is
// truncated to an int state. Consecutive equal states merge into one interval.
func Reconstruct(key GroupKey, primary iter.Seq[series.Sample], satellite map[int64]float64) []Interval {
	var (
		out     []Interval
		current = -1
	)
	for s := range primary {
		state := int(s.Value)
		if current >= 0 && out[current].State == state {
			continue
		}
		if current >= 0 {
			out[current].End = s.Timestamp
			out[current].Closed = true
		}

		iv := Interval{
			EquipmentID: key.EquipmentID,
			TestPointID: key.TestPointID,
			Tag:         key.Tag,
			State:       state,
			Start:       s.Timestamp,
		}
		if len(satellite) > 0 {
			if v, ok := satellite[s.Timestamp.UnixMilli()]; ok {
				iv.Satellite = &v
			}
		}
		out = append(out, iv)
		current = len(out) - 1
	}
	return out
}
