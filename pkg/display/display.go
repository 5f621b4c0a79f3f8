// Package display holds the display settings used to render satellite
// amplitude values: the sensor type, the unit to show and the scale factor.
package display

import (
	"math"
	"strconv"
	"sync"
)

// SensorType identifies the PD sensor technology.
type SensorType int

// Sensor types.
const (
	SensorUndefined       SensorType = 0
	SensorUHF             SensorType = 11
	SensorRF              SensorType = 12
	SensorAE              SensorType = 21
	SensorAA              SensorType = 22
	SensorAcousticImaging SensorType = 23
	SensorTEV             SensorType = 31
	SensorHF              SensorType = 41
)

// String returns the sensor type name.
func (s SensorType) String() string {
	switch s {
	case SensorUHF:
		return "UHF"
	case SensorRF:
		return "RF"
	case SensorAE:
		return "AE"
	case SensorAA:
		return "AA"
	case SensorAcousticImaging:
		return "AcousticImaging"
	case SensorTEV:
		return "TEV"
	case SensorHF:
		return "HF"
	default:
		return "N/A"
	}
}

// Unit is an amplitude unit code.
type Unit int

// Amplitude units.
const (
	UnitOther Unit = iota
	UnitDB
	UnitDBm
	UnitDBmV
	UnitDBuV
	UnitV
	UnitMV
	UnitUV
	UnitPercent
	UnitA
	UnitMA
	UnitUA
	UnitOhm
	UnitMOhm
	UnitUOhm
	UnitMPerSqrSecond
	UnitMM
	UnitDegreeC
	UnitDegreeF
	UnitPa
	UnitC
	UnitMC
	UnitUC
	UnitNC
	UnitPC
)

var unitNames = map[Unit]string{
	UnitDB:            "dB",
	UnitDBm:           "dBm",
	UnitDBmV:          "dBmV",
	UnitDBuV:          "dBuV",
	UnitV:             "V",
	UnitMV:            "mV",
	UnitUV:            "uV",
	UnitPercent:       "%",
	UnitA:             "A",
	UnitMA:            "mA",
	UnitUA:            "uA",
	UnitOhm:           "Ohm",
	UnitMOhm:          "mOhm",
	UnitMPerSqrSecond: "m*s^2",
	UnitMM:            "mm",
	UnitDegreeC:       "C°",
	UnitDegreeF:       "F°",
	UnitPa:            "Pa",
	UnitC:             "C",
	UnitMC:            "mC",
	UnitUC:            "uC",
	UnitNC:            "nC",
	UnitPC:            "pC",
}

// String returns the unit symbol, or "N/A".
func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return "N/A"
}

// Settings describes how values of one (sensor, unit) pair are shown.
type Settings struct {
	Sensor       SensorType
	OriginalUnit Unit
	Unit         Unit
	Factor       float64
}

// NewSettings builds the settings for a sensor type and source unit.
// HF sensors reporting volts are shown in millivolts.
func NewSettings(sensor SensorType, unit Unit) Settings {
	s := Settings{Sensor: sensor, OriginalUnit: unit, Unit: unit, Factor: 1}
	if sensor == SensorHF && unit == UnitV {
		s.Factor = 1000
		s.Unit = UnitMV
	}
	return s
}

// epsilon nudges halfway values upward before rounding.
const epsilon = 2.220446049250313e-16

// ValueText scales v, rounds it to two decimals and appends the unit.
func (s Settings) ValueText(v float64) string {
	rounded := math.Round((v*s.Factor+epsilon)*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + s.Unit.String()
}

// String returns "sensor/unit/factor".
func (s Settings) String() string {
	return s.Sensor.String() + "/" + s.Unit.String() + "/" + strconv.FormatFloat(s.Factor, 'f', -1, 64)
}

// Key identifies a cache entry.
type Key struct {
	Sensor SensorType
	Unit   Unit
}

// Cache memoizes Settings by Key. The zero value is ready to use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]Settings
}

// Get returns the cached settings for (sensor, unit), creating them on first use.
func (c *Cache) Get(sensor SensorType, unit Unit) Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := Key{Sensor: sensor, Unit: unit}
	if s, ok := c.entries[key]; ok {
		return s
	}
	if c.entries == nil {
		c.entries = make(map[Key]Settings)
	}
	s := NewSettings(sensor, unit)
	c.entries[key] = s
	return s
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
