package events

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sd400mp/mp-go/pkg/display"
	"github.com/sd400mp/mp-go/pkg/series"
)

func payload(pairs ...float64) string {
	return series.Encode(samples(pairs...), 0)
}

func TestFromPayloadsEmpty(t *testing.T) {
	r := &Reconstructor{}

	got, err := r.FromPayloads(key, "", payload(0, 1))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFromPayloadsWithSatellite(t *testing.T) {
	r := &Reconstructor{}

	got, err := r.FromPayloads(key, payload(0, 0, 10, 2, 20, 2), payload(10, 4))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Satellite)
	require.NotNil(t, got[1].Satellite)
	assert.Equal(t, 4.0, *got[1].Satellite)
}

func TestFromPayloadsWarnings(t *testing.T) {
	raw := series.EncodeBytes(samples(0, 1, 5, 2), 0)
	raw = append(raw, 0xff, 0xff)
	corrupt := base64.StdEncoding.EncodeToString(raw)

	var warned []error
	r := &Reconstructor{OnWarning: func(k GroupKey, err error) {
		assert.Equal(t, key, k)
		warned = append(warned, err)
	}}

	got, err := r.FromPayloads(key, corrupt, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	require.Len(t, warned, 1)
	assert.ErrorIs(t, warned[0], series.ErrPartialRecord)

	strict := &Reconstructor{Decoder: series.Decoder{Strict: true}}
	_, err = strict.FromPayloads(key, corrupt, "")
	assert.ErrorIs(t, err, series.ErrPartialRecord)
}

func testCatalog() Catalog {
	return NewCatalog([]Tag{
		{Key: TagTestPointState, State: true},
		{Key: TagConnectionState, State: true},
		{Key: TagPdClassEnum},
		{Key: TagAverageAmplitude, Units: "mV"},
	})
}

func TestBuilderGroupsByTag(t *testing.T) {
	b := &Builder{Catalog: testCatalog(), Display: &display.Cache{}}
	l := NewList()

	require.NoError(t, b.Add(l, "1", "10", TagPayload{Tag: TagTestPointState, Events: payload(0, 0, 5, 1)}))
	require.NoError(t, b.Add(l, "1", "11", TagPayload{Tag: TagTestPointState, Events: payload(0, 2)}))
	require.NoError(t, b.Add(l, "1", "10", TagPayload{Tag: TagConnectionState}))
	require.NoError(t, b.Add(l, "1", "10", TagPayload{Tag: "unknown", Events: payload(0, 1)}))

	groups := l.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, TagTestPointState, groups[0].Tag.Key)
	assert.Equal(t, TagConnectionState, groups[1].Tag.Key)
	assert.Len(t, groups[0].Intervals, 3)
	assert.Empty(t, groups[1].Intervals)
	assert.Equal(t, 3, l.Len())

	_, ok := l.Group("unknown")
	assert.False(t, ok)
}

func TestBuilderSatelliteText(t *testing.T) {
	b := &Builder{Catalog: testCatalog(), Display: &display.Cache{}}
	l := NewList()
	l.PdClasses[4] = PdClass{Index: 4, NativeName: "4 - internal discharge", Name: "Internal"}
	l.EquipmentNames["1"] = "Switchgear A"
	l.TestPointNames["10"] = "Cable 1"

	require.NoError(t, b.Add(l, "1", "10", TagPayload{
		Tag:    TagTestPointState,
		Events: payload(0, 1),
		Satellite: &SatellitePayload{
			Tag:    TagPdClassEnum,
			Sensor: display.SensorUHF,
			Unit:   display.UnitDBm,
			Events: payload(0, 4),
		},
	}))
	require.NoError(t, b.Add(l, "1", "10", TagPayload{
		Tag:    TagConnectionState,
		Events: payload(0, 2),
		Satellite: &SatellitePayload{
			Tag:    TagAverageAmplitude,
			Sensor: display.SensorHF,
			Unit:   display.UnitV,
			Events: payload(0, 0.0125),
		},
	}))

	g, ok := l.Group(TagTestPointState)
	require.True(t, ok)
	require.Len(t, g.Intervals, 1)
	assert.Equal(t, "Internal", l.SatelliteText(g.Intervals[0]))
	assert.Equal(t, "Switchgear A/Cable 1/1", l.Label(g.Intervals[0]))

	g, ok = l.Group(TagConnectionState)
	require.True(t, ok)
	require.Len(t, g.Intervals, 1)
	assert.Equal(t, "12.5 mV", l.SatelliteText(g.Intervals[0]))
	assert.Equal(t, 2, b.Display.Len())

	require.NoError(t, b.Add(l, "1", "11", TagPayload{
		Tag:    TagConnectionState,
		Events: payload(0, 1),
		Satellite: &SatellitePayload{
			Tag:    TagAverageAmplitude,
			Sensor: display.SensorHF,
			Unit:   display.UnitV,
			Events: payload(0, 0.5),
		},
	}))
	assert.Equal(t, 2, b.Display.Len())

	assert.Equal(t, "", l.SatelliteText(Interval{Tag: TagConnectionState}))
}

func TestPdClassIndex(t *testing.T) {
	assert.Equal(t, 1, PdClassIndex("1 - corona"))
	assert.Equal(t, 9, PdClassIndex("9 - vibration"))
	assert.Equal(t, 0, PdClassIndex("something else"))
}

func TestTagCanPreview(t *testing.T) {
	assert.True(t, Tag{Key: TagSensorType, Hidden: true}.CanPreview())
	assert.False(t, Tag{Key: TagPdDatasetWaveforms}.CanPreview())
	assert.False(t, Tag{Key: "x", State: true}.CanPreview())
	assert.False(t, Tag{Key: "x", Prop: 1 << 4}.CanPreview())
	assert.True(t, Tag{Key: "x"}.CanPreview())

	c := NewCatalog([]Tag{{Key: "v", UnitLink: "u"}, {Key: "u", Title: "Unit"}})
	u, ok := c.UnitTag("v")
	require.True(t, ok)
	assert.Equal(t, "Unit", u.Title)
	_, ok = c.UnitTag("u")
	assert.False(t, ok)
}
