package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func TestAggregateScenario(t *testing.T) {
	got := Aggregate([]EquipmentStat{{
		ID: "7",
		Items: []Item{
			{Kind: KindOk, Value: 3},
			{Kind: KindOk, Value: 2},
			{Kind: KindTestPointCount, Value: 10},
			{Kind: KindTestPointCount, Value: 7},
		},
	}})

	require.Len(t, got, 1)
	assert.Equal(t, "7", got[0].EquipmentID)
	assert.Equal(t, 5.0, got[0].State.Ok)
	assert.Equal(t, 7.0, got[0].TestPointCount)
}

func TestAggregateAdditiveKindsSum(t *testing.T) {
	kinds := []Kind{
		KindOk, KindWarning, KindAlarm, KindUnknownState,
		KindConnectionOk, KindConnectionFailure, KindConnectionUnknown,
	}
	values := []float64{1, 4, 0.5, 9, 2}

	for _, k := range kinds {
		t.Run(k.String(), func(t *testing.T) {
			var items []Item
			var want float64
			for _, v := range values {
				items = append(items, Item{Kind: k, Value: v})
				want += v
			}

			s := Aggregate([]EquipmentStat{{ID: "1", Items: items}})[0]
			counters := map[Kind]float64{
				KindOk:                s.State.Ok,
				KindWarning:           s.State.Warning,
				KindAlarm:             s.State.Alarm,
				KindUnknownState:      s.State.Undefined,
				KindConnectionOk:      s.Connectivity.Connected,
				KindConnectionFailure: s.Connectivity.Disconnected,
				KindConnectionUnknown: s.Connectivity.Disabled,
			}
			for kind, got := range counters {
				if kind == k {
					assert.Equal(t, want, got)
				} else {
					assert.Zero(t, got, "kind %s", kind)
				}
			}
			assert.Zero(t, s.TestPointCount)
		})
	}
}

func TestAggregateTestPointCountLastWrite(t *testing.T) {
	items := []Item{
		{Kind: KindTestPointCount, Value: 3},
		{Kind: KindOk, Value: 1},
		{Kind: KindTestPointCount, Value: 12},
		{Kind: KindTestPointCount, Value: 4},
	}
	s := Aggregate([]EquipmentStat{{ID: "1", Items: items}})[0]
	assert.Equal(t, 4.0, s.TestPointCount)
}

func TestAggregateIgnoresUnknownKinds(t *testing.T) {
	s := Aggregate([]EquipmentStat{{ID: "1", Items: []Item{
		{Kind: KindServerDatasetCount, Value: 100},
		{Kind: KindHasNewData, Value: 1},
		{Kind: Kind(99), Value: 5},
	}}})[0]

	assert.Equal(t, Summary{EquipmentID: "1"}, s)
}

func TestAggregateTimes(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	got := Aggregate([]EquipmentStat{
		{ID: "a"},
		{ID: "b", Time: ptr(t2), TimeUpdate: ptr(t1)},
		{ID: "a", Time: ptr(t1)},
		{ID: "b", Time: ptr(t1), TimeUpdate: ptr(t2)},
		{ID: "a", Items: []Item{{Kind: KindAlarm, Value: 1}}},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].EquipmentID)
	assert.Equal(t, "b", got[1].EquipmentID)

	require.NotNil(t, got[0].MaxDatasetTime)
	assert.Equal(t, t1, *got[0].MaxDatasetTime)
	assert.Nil(t, got[0].MaxUpdateTime)
	assert.Equal(t, 1.0, got[0].State.Alarm)

	assert.Equal(t, t2, *got[1].MaxDatasetTime)
	assert.Equal(t, t2, *got[1].MaxUpdateTime)
}

func TestAggregateDoesNotAliasInput(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	in := []EquipmentStat{{ID: "a", Time: ptr(t1)}}

	got := Aggregate(in)
	*in[0].Time = t1.Add(time.Hour)
	assert.Equal(t, t1, *got[0].MaxDatasetTime)
}

func TestTotals(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	total := Totals([]Summary{
		{EquipmentID: "a", TestPointCount: 3, State: StateCounts{Ok: 2, Alarm: 1}, MaxUpdateTime: ptr(t1)},
		{EquipmentID: "b", TestPointCount: 4, State: StateCounts{Warning: 4}, Connectivity: ConnectivityCounts{Connected: 2}},
	})

	assert.Equal(t, 7.0, total.TestPointCount)
	assert.Equal(t, 7.0, total.State.Total())
	assert.Equal(t, 2.0, total.Connectivity.Connected)
	assert.Equal(t, t1, *total.MaxUpdateTime)
	assert.Nil(t, total.MaxDatasetTime)
}

func TestListFromJSON(t *testing.T) {
	raw := `{
		"serverStart": "2024-03-01T08:00:00Z",
		"eq": [
			{"id": "5", "items": [{"t": 0, "v": 2}, {"t": 10, "v": 1}, {"t": 12, "v": 2}],
			 "time": "2024-03-01T09:00:00Z"}
		]
	}`

	var l List
	require.NoError(t, json.Unmarshal([]byte(raw), &l))
	require.NotNil(t, l.ServerStart)
	assert.Equal(t, 2*time.Hour, l.Uptime(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	s := l.Summaries()
	require.Len(t, s, 1)
	assert.Equal(t, 2.0, s[0].State.Ok)
	assert.Equal(t, 1.0, s[0].Connectivity.Connected)
	assert.Equal(t, 2.0, s[0].TestPointCount)
	assert.Nil(t, s[0].MaxUpdateTime)
}

func TestListFromJSONZonelessTimes(t *testing.T) {
	raw := `{
		"serverStart": "2024-03-01T08:00:00",
		"eq": [
			{"id": "5", "items": [{"t": 12, "v": 1}],
			 "time": "2024-03-01T09:00:00", "timeUpdate": "2024-03-01 09:30:00.5"},
			{"id": "6", "items": [], "time": null, "timeUpdate": ""}
		]
	}`

	var l List
	require.NoError(t, json.Unmarshal([]byte(raw), &l))
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)
	require.NotNil(t, l.ServerStart)
	assert.True(t, start.Equal(*l.ServerStart))

	s := l.Summaries()
	require.Len(t, s, 2)
	require.NotNil(t, s[0].MaxDatasetTime)
	assert.True(t, start.Add(time.Hour).Equal(*s[0].MaxDatasetTime))
	require.NotNil(t, s[0].MaxUpdateTime)
	assert.True(t, start.Add(90*time.Minute+500*time.Millisecond).Equal(*s[0].MaxUpdateTime))
	assert.Nil(t, s[1].MaxDatasetTime)
	assert.Nil(t, s[1].MaxUpdateTime)

	assert.Error(t, json.Unmarshal([]byte(`{"serverStart": "later"}`), &l))
}
