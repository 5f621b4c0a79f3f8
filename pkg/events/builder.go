package events

import (
	"strings"

	"github.com/sd400mp/mp-go/pkg/display"
)

// TagPayload is the event data of one tag of one test point.
type TagPayload struct {
	Tag       string
	Events    string
	Satellite *SatellitePayload
}

// SatellitePayload is the optional satellite channel of a TagPayload.
type SatellitePayload struct {
	Tag    string
	Sensor display.SensorType
	Unit   display.Unit
	Events string
}

// Builder adds tag payloads to a List.
type Builder struct {
	Reconstructor *Reconstructor
	Catalog       Catalog

	// Display caches satellite display settings. Optional.
	Display *display.Cache
}

// Add reconstructs p for the given test point and appends the intervals to the
// tag's group in l. Tags missing from the catalog are skipped. The group is
// created even when p carries no events.
func (b *Builder) Add(l *List, equipmentID, testPointID string, p TagPayload) error {
	tag, ok := b.Catalog.Lookup(p.Tag)
	if !ok {
		return nil
	}
	g := l.group(tag)
	if strings.TrimSpace(p.Events) == "" {
		return nil
	}

	var satellite string
	if sat := p.Satellite; sat != nil && sat.Events != "" {
		if stag, ok := b.Catalog.Lookup(sat.Tag); ok {
			g.SatelliteTag = &stag
			g.Display[testPointID] = b.settings(sat.Sensor, sat.Unit)
		}
		satellite = sat.Events
	}

	key := GroupKey{EquipmentID: equipmentID, TestPointID: testPointID, Tag: tag.Key}
	intervals, err := b.reconstructor().FromPayloads(key, p.Events, satellite)
	if err != nil {
		return err
	}
	g.Intervals = append(g.Intervals, intervals...)
	return nil
}

func (b *Builder) settings(sensor display.SensorType, unit display.Unit) display.Settings {
	if b.Display != nil {
		return b.Display.Get(sensor, unit)
	}
	return display.NewSettings(sensor, unit)
}

func (b *Builder) reconstructor() *Reconstructor {
	if b.Reconstructor != nil {
		return b.Reconstructor
	}
	return &Reconstructor{}
}
