package events

import (
	"strconv"

	"github.com/sd400mp/mp-go/pkg/display"
)

// PdClass names a PD diagnosis class. Index is the value carried by the
// PD class satellite channel.
type PdClass struct {
	Index       int
	NativeName  string
	Name        string
	Description string
}

// PD class native names and their satellite indices.
var pdClassIndex = map[string]int{
	"1 - corona":               1,
	"2 - floating potential":   2,
	"3 - surface discharge":    3,
	"4 - internal discharge":   4,
	"5 - particle discharge":   5,
	"6 - external disturbance": 6,
	"7 - repetitive discharge": 7,
	"8 - floating narrow":      8,
	"9 - vibration":            9,
}

// PdClassIndex returns the satellite index for a native class name, or 0.
func PdClassIndex(nativeName string) int {
	return pdClassIndex[nativeName]
}

// Group collects the intervals of one tag across all equipment and test points.
type Group struct {
	Tag          Tag
	SatelliteTag *Tag
	Intervals    []Interval

	// Display holds the satellite display settings per test point id.
	Display map[string]display.Settings
}

// List is the assembled result of an events query.
type List struct {
	groups []*Group
	index  map[string]*Group

	PdClasses      map[int]PdClass
	EquipmentNames map[string]string
	TestPointNames map[string]string
}

// NewList returns an empty list.
func NewList() *List {
	return &List{
		index:          make(map[string]*Group),
		PdClasses:      make(map[int]PdClass),
		EquipmentNames: make(map[string]string),
		TestPointNames: make(map[string]string),
	}
}

// Groups returns the groups in creation order.
func (l *List) Groups() []*Group {
	return l.groups
}

// Group returns the group for a tag key.
func (l *List) Group(key string) (*Group, bool) {
	g, ok := l.index[key]
	return g, ok
}

// group returns the group for tag, creating it if needed.
func (l *List) group(tag Tag) *Group {
	if g, ok := l.index[tag.Key]; ok {
		return g
	}
	g := &Group{Tag: tag, Display: make(map[string]display.Settings)}
	l.index[tag.Key] = g
	l.groups = append(l.groups, g)
	return g
}

// Len returns the total number of intervals over all groups.
func (l *List) Len() int {
	n := 0
	for _, g := range l.groups {
		n += len(g.Intervals)
	}
	return n
}

// Label returns "equipment/testpoint/state" using the resolved names.
func (l *List) Label(iv Interval) string {
	return l.EquipmentNames[iv.EquipmentID] + "/" + l.TestPointNames[iv.TestPointID] + "/" + strconv.Itoa(iv.State)
}

// SatelliteText renders the satellite value of iv for display. It returns ""
// when the interval has no satellite value or the tag has no rendering.
func (l *List) SatelliteText(iv Interval) string {
	if iv.Satellite == nil {
		return ""
	}
	g, ok := l.index[iv.Tag]
	if !ok || g.SatelliteTag == nil {
		return ""
	}

	switch g.SatelliteTag.Key {
	case TagPdClassEnum:
		if c, ok := l.PdClasses[int(*iv.Satellite)]; ok {
			return c.Name
		}
	case TagAverageAmplitude:
		if s, ok := g.Display[iv.TestPointID]; ok {
			return s.ValueText(*iv.Satellite)
		}
	}
	return ""
}
