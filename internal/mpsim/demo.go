package mpsim

import (
	"time"

	"github.com/sd400mp/mp-go/pkg/client"
	"github.com/sd400mp/mp-go/pkg/display"
	"github.com/sd400mp/mp-go/pkg/events"
	"github.com/sd400mp/mp-go/pkg/series"
	"github.com/sd400mp/mp-go/pkg/stats"
	"github.com/sd400mp/mp-go/pkg/timestamp"
)

// Demo user credentials.
const (
	DemoUser     = "operator"
	DemoPassword = "operator"
)

// Demo returns a server with one switchgear, two cable test points and a
// day of state changes ending at now.
func Demo(now time.Time) *Server {
	now = now.UTC().Truncate(time.Second)
	start := now.Add(-24 * time.Hour)
	at := func(h int) time.Time { return start.Add(time.Duration(h) * time.Hour) }

	s := New()
	s.AddUser(DemoUser, DemoPassword)

	s.Tags = []events.Tag{
		{Key: events.TagTestPointState, Title: "State", State: true},
		{Key: events.TagConnectionState, Title: "Connection", State: true},
		{Key: events.TagPdClassEnum, Title: "PD class", Hidden: true},
		{Key: events.TagAverageAmplitude, Title: "Average amplitude", UnitLink: events.TagAmplitudeUnits},
		{Key: events.TagAmplitudeUnits, Title: "Amplitude unit"},
		{Key: events.TagSensorType, Title: "Sensor type"},
		{Key: events.TagPdDataset, Title: "PD dataset", Prop: 1},
	}
	s.Plugins = []client.Plugin{
		{Key: "sd400", Options: client.PluginOptions{Cfg: true, Nav: true, Prps: true}},
		{Key: "modbus", Options: client.PluginOptions{Cfg: true}},
	}
	s.DataSources["eq-1"] = []client.DataSource{
		{ID: "ds-1", Name: "SD400 bay 1", Plugin: "sd400", Enabled: true},
		{ID: "ds-2", Name: "Modbus gateway", Plugin: "modbus", Enabled: true},
	}
	s.Names = map[string]string{
		"eq-1": "Switchgear A",
		"tp-1": "Cable 1",
		"tp-2": "Cable 2",
	}
	s.PdClasses = []client.PdClassInfo{
		{NativeName: "1 - corona", Name: "Corona"},
		{NativeName: "3 - surface discharge", Name: "Surface"},
		{NativeName: "4 - internal discharge", Name: "Internal"},
	}

	state := func(points ...float64) string {
		samples := make([]series.Sample, len(points))
		for i, v := range points {
			samples[i] = series.Sample{Timestamp: at(i * 4), Value: v}
		}
		return series.Encode(samples, 0)
	}
	class := series.Encode([]series.Sample{
		{Timestamp: at(4), Value: 4},
		{Timestamp: at(12), Value: 3},
	}, 0)
	corona := series.Encode([]series.Sample{
		{Timestamp: at(4), Value: 1},
	}, 0)

	s.Events["eq-1"] = client.EventEquipment{
		ID: "eq-1",
		TestPoints: []client.EventTestPoint{
			{
				ID: "tp-1",
				Tags: []client.EventTag{
					{
						Tag:    events.TagTestPointState,
						Events: &client.Payload{Payload: state(0, 1, 1, 2, 0)},
						Satellite: &client.EventSatellite{
							Tag:    events.TagPdClassEnum,
							Events: &client.Payload{Payload: class},
						},
					},
				},
			},
			{
				ID: "tp-2",
				Tags: []client.EventTag{
					{
						Tag:    events.TagTestPointState,
						Events: &client.Payload{Payload: state(0, 1)},
						Satellite: &client.EventSatellite{
							Tag:    events.TagPdClassEnum,
							Sensor: client.Number(display.SensorHF),
							Unit:   client.Number(display.UnitV),
							Events: &client.Payload{Payload: corona},
						},
					},
					{
						Tag:    events.TagConnectionState,
						Events: &client.Payload{Payload: state(1, 1, 0)},
					},
				},
			},
		},
	}

	serverStart := start.Add(-72 * time.Hour)
	lastData := at(20)
	s.Stats = stats.List{
		ServerStart: &serverStart,
		Entries: []stats.EquipmentStat{
			{
				ID: "eq-1",
				Items: []stats.Item{
					{Kind: stats.KindTestPointCount, Value: 2},
					{Kind: stats.KindOk, Value: 1},
					{Kind: stats.KindWarning, Value: 1},
					{Kind: stats.KindConnectionOk, Value: 1},
					{Kind: stats.KindConnectionFailure, Value: 1},
				},
				Time:       &lastData,
				TimeUpdate: &now,
			},
		},
	}

	for h := 0; h < 24; h += 6 {
		s.Index["tp-1"] = append(s.Index["tp-1"], at(h))
		s.Index["tp-2"] = append(s.Index["tp-2"], at(h+3))
	}
	for h := range 24 {
		s.Archive["tp-1"] = append(s.Archive["tp-1"], series.Sample{Timestamp: at(h), Value: float64(h % 5)})
	}

	s.Values["tp-1"] = []client.ValueEntry{
		liveValue(events.TagAverageAmplitude, client.ValueFloat, "12.5", now),
		liveValue(events.TagAmplitudeUnits, client.ValueInt32, "1", now),
		liveValue(events.TagSensorType, client.ValueInt32, "2", now),
		liveValue(events.TagTestPointState, client.ValueInt32, "0", now),
		liveValue("vendor/fw", client.ValueString, "4.2.1", now),
	}
	s.Values["tp-2"] = []client.ValueEntry{
		liveValue(events.TagAverageAmplitude, client.ValueFloat, "3.25", now),
		liveValue(events.TagConnectionState, client.ValueBoolean, "false", now),
	}

	internal := 2
	s.Accumulations["tp-1"] = client.AccumulateData{
		Pde: &client.PdResult{
			PdClassScore: client.PdClassScore{
				NativeName: "4 - internal discharge",
				Name:       "Internal",
				Value:      0.82,
				State:      1,
				ClassID:    &internal,
			},
			StateTestPoint: 1,
			Probability: []client.PdClassScore{
				{NativeName: "4 - internal discharge", Name: "Internal", Value: 0.82},
				{NativeName: "3 - surface discharge", Name: "Surface", Value: 0.12},
				{NativeName: "1 - corona", Name: "Corona", Value: 0.06},
			},
		},
		Value: ptr(liveValue(events.TagAverageAmplitude, client.ValueFloat, "11.75", at(20))),
	}
	return s
}

func liveValue(key string, typ client.ValueType, val string, at time.Time) client.ValueEntry {
	text := client.Text(val)
	return client.ValueEntry{
		Key:  key,
		Time: &timestamp.Time{Time: at},
		Type: client.Number(typ),
		Val:  &text,
	}
}

func ptr[T any](v T) *T {
	return &v
}
