// Package stats rolls raw per-equipment counters up into summaries.
package stats

import (
	"encoding/json"
	"time"

	"github.com/sd400mp/mp-go/pkg/timestamp"
)

// Kind is a counter kind code as sent by the server.
type Kind int

// Counter kinds.
const (
	KindUnknownState       Kind = -1
	KindOk                 Kind = 0
	KindWarning            Kind = 1
	KindAlarm              Kind = 2
	KindConnectionOk       Kind = 10
	KindConnectionFailure  Kind = 11
	KindTestPointCount     Kind = 12
	KindServerDatasetCount Kind = 13
	KindHasNewData         Kind = 15
	KindConnectionUnknown  Kind = 16
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnknownState:
		return "UNKNOWN_STATE"
	case KindOk:
		return "OK"
	case KindWarning:
		return "WARNING"
	case KindAlarm:
		return "ALARM"
	case KindConnectionOk:
		return "CONNECTION_OK"
	case KindConnectionFailure:
		return "CONNECTION_FAILURE"
	case KindTestPointCount:
		return "TESTPOINT_COUNT"
	case KindServerDatasetCount:
		return "SERVER_DATASET_COUNT"
	case KindHasNewData:
		return "HAS_NEW_DATA"
	case KindConnectionUnknown:
		return "CONNECTION_UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// Item is one raw counter.
type Item struct {
	Kind  Kind    `json:"t"`
	Value float64 `json:"v"`
}

// EquipmentStat is the raw counter list of one equipment.
type EquipmentStat struct {
	ID         string     `json:"id"`
	Items      []Item     `json:"items"`
	Time       *time.Time `json:"time,omitempty"`
	TimeUpdate *time.Time `json:"timeUpdate,omitempty"`
}

// UnmarshalJSON accepts timestamps with or without a zone.
func (e *EquipmentStat) UnmarshalJSON(data []byte) error {
	type plain EquipmentStat
	var raw struct {
		plain
		Time       *timestamp.Time `json:"time"`
		TimeUpdate *timestamp.Time `json:"timeUpdate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = EquipmentStat(raw.plain)
	e.Time = raw.Time.Ptr()
	e.TimeUpdate = raw.TimeUpdate.Ptr()
	return nil
}

// StateCounts counts test points per state.
type StateCounts struct {
	Ok        float64
	Warning   float64
	Alarm     float64
	Undefined float64
}

// Total returns the sum of all states.
func (s StateCounts) Total() float64 {
	return s.Ok + s.Warning + s.Alarm + s.Undefined
}

// ConnectivityCounts counts data sources per connection state.
type ConnectivityCounts struct {
	Connected    float64
	Disconnected float64
	Disabled     float64
}

// Summary is the aggregated view of one equipment.
type Summary struct {
	EquipmentID    string
	TestPointCount float64
	State          StateCounts
	Connectivity   ConnectivityCounts

	// MaxDatasetTime and MaxUpdateTime are nil when no source reported one.
	MaxDatasetTime *time.Time
	MaxUpdateTime  *time.Time
}

// add applies one item. Kinds outside the aggregated set are ignored.
func (s *Summary) add(it Item) {
	switch it.Kind {
	case KindTestPointCount:
		s.TestPointCount = it.Value
	case KindOk:
		s.State.Ok += it.Value
	case KindWarning:
		s.State.Warning += it.Value
	case KindAlarm:
		s.State.Alarm += it.Value
	case KindUnknownState:
		s.State.Undefined += it.Value
	case KindConnectionOk:
		s.Connectivity.Connected += it.Value
	case KindConnectionFailure:
		s.Connectivity.Disconnected += it.Value
	case KindConnectionUnknown:
		s.Connectivity.Disabled += it.Value
	}
}

// latest keeps the strictly greatest non-nil time.
func latest(cur, candidate *time.Time) *time.Time {
	if candidate == nil {
		return cur
	}
	if cur == nil || candidate.After(*cur) {
		t := *candidate
		return &t
	}
	return cur
}

// Aggregate builds one summary per equipment id, in first-seen order.
// Entries sharing an id are merged into a single summary.
func Aggregate(entries []EquipmentStat) []Summary {
	out := make([]Summary, 0, len(entries))
	pos := make(map[string]int, len(entries))

	for _, e := range entries {
		i, ok := pos[e.ID]
		if !ok {
			i = len(out)
			pos[e.ID] = i
			out = append(out, Summary{EquipmentID: e.ID})
		}
		s := &out[i]
		for _, it := range e.Items {
			s.add(it)
		}
		s.MaxDatasetTime = latest(s.MaxDatasetTime, e.Time)
		s.MaxUpdateTime = latest(s.MaxUpdateTime, e.TimeUpdate)
	}
	return out
}

// Totals sums summaries into one roll-up with an empty equipment id.
// Test point counts are summed since each summary holds a distinct equipment.
func Totals(summaries []Summary) Summary {
	var t Summary
	for _, s := range summaries {
		t.TestPointCount += s.TestPointCount
		t.State.Ok += s.State.Ok
		t.State.Warning += s.State.Warning
		t.State.Alarm += s.State.Alarm
		t.State.Undefined += s.State.Undefined
		t.Connectivity.Connected += s.Connectivity.Connected
		t.Connectivity.Disconnected += s.Connectivity.Disconnected
		t.Connectivity.Disabled += s.Connectivity.Disabled
		t.MaxDatasetTime = latest(t.MaxDatasetTime, s.MaxDatasetTime)
		t.MaxUpdateTime = latest(t.MaxUpdateTime, s.MaxUpdateTime)
	}
	return t
}

// List is a statistics response.
type List struct {
	ServerStart *time.Time      `json:"serverStart,omitempty"`
	Entries     []EquipmentStat `json:"eq"`
}

// UnmarshalJSON accepts a server start time with or without a zone.
func (l *List) UnmarshalJSON(data []byte) error {
	type plain List
	var raw struct {
		plain
		ServerStart *timestamp.Time `json:"serverStart"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = List(raw.plain)
	l.ServerStart = raw.ServerStart.Ptr()
	return nil
}

// Summaries aggregates the entries of l.
func (l *List) Summaries() []Summary {
	return Aggregate(l.Entries)
}

// Uptime returns how long the server has been running at now, or 0 if unknown.
func (l *List) Uptime(now time.Time) time.Duration {
	if l.ServerStart == nil {
		return 0
	}
	return now.Sub(*l.ServerStart)
}
