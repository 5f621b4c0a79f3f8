package events

// Well-known tag keys.
const (
	TagAmplitudeUnits     = "mont/pd/au"
	TagSensorType         = "mont/pd/mt"
	TagAverageAmplitude   = "mont/pd/magAv"
	TagPdDataset          = "bin:mont/pd"
	TagPdDatasetFeatures  = "bin:mont/pd/wf/features"
	TagPdDatasetWaveforms = "bin:mont/pd/wf/raw"
	TagPdClassEnum        = "sys:mont/pd/dia/class/enum"
	TagConnectionState    = "sys:cs"
	TagTestPointState     = "sys:st"
)

// Tag describes a measurement channel as published by the server catalogue.
type Tag struct {
	Key      string `json:"key"`
	Title    string `json:"title,omitempty"`
	Units    string `json:"units,omitempty"`
	Parent   string `json:"parent,omitempty"`
	SaveType int    `json:"saveType,omitempty"`
	State    bool   `json:"state,omitempty"`
	Trend    bool   `json:"trend,omitempty"`
	Bit      bool   `json:"bit,omitempty"`
	Hidden   bool   `json:"hidden,omitempty"`
	Prop     int    `json:"prop,omitempty"`
	UnitLink string `json:"unitLink,omitempty"`
	Link     string `json:"link,omitempty"`
}

// PropBit reports whether bit n of Prop is set.
func (t Tag) PropBit(n int) bool {
	return t.Prop&(1<<n) != 0
}

// IsDataset reports whether the tag names a binary dataset.
func (t Tag) IsDataset() bool {
	return t.PropBit(0)
}

// CanPreview reports whether the tag's live value is worth showing in a preview.
func (t Tag) CanPreview() bool {
	switch t.Key {
	case TagPdDatasetFeatures, TagPdDatasetWaveforms:
		return false
	case TagSensorType, TagAmplitudeUnits:
		return true
	}
	return !t.Hidden && !t.State && !t.PropBit(4)
}

// Catalog indexes tags by key.
type Catalog map[string]Tag

// NewCatalog builds a catalog from a tag list. Later duplicates win.
func NewCatalog(tags []Tag) Catalog {
	c := make(Catalog, len(tags))
	for _, t := range tags {
		c[t.Key] = t
	}
	return c
}

// Lookup returns the tag for key.
func (c Catalog) Lookup(key string) (Tag, bool) {
	t, ok := c[key]
	return t, ok
}

// UnitTag returns the tag holding the unit of the value tag key, if linked.
func (c Catalog) UnitTag(key string) (Tag, bool) {
	t, ok := c[key]
	if !ok || t.UnitLink == "" {
		return Tag{}, false
	}
	return c.Lookup(t.UnitLink)
}
