package events

import (
	"log/slog"
	"strings"

	"github.com/sd400mp/mp-go/pkg/series"
)

// Reconstructor decodes payloads and reconstructs intervals from them.
type Reconstructor struct {
	Decoder series.Decoder
	Logger  *slog.Logger

	// OnWarning, if set, is called for every recoverable decode warning.
	OnWarning func(key GroupKey, err error)
}

// FromPayloads reconstructs the intervals of one group. An empty primary
// payload yields no intervals; the satellite payload is only read when the
// primary one is present. With a strict decoder, decode errors are returned.
func (r *Reconstructor) FromPayloads(key GroupKey, primary, satellite string) ([]Interval, error) {
	if strings.TrimSpace(primary) == "" {
		return nil, nil
	}

	var index map[int64]float64
	if strings.TrimSpace(satellite) != "" {
		s, err := r.Decoder.Decode(satellite)
		if err != nil {
			return nil, err
		}
		r.warn(key, "satellite", s)
		index = SatelliteIndex(s.All())
	}

	s, err := r.Decoder.Decode(primary)
	if err != nil {
		return nil, err
	}
	r.warn(key, "events", s)

	return Reconstruct(key, s.All(), index), nil
}

func (r *Reconstructor) warn(key GroupKey, channel string, s *series.Series) {
	for _, err := range s.Warnings() {
		r.logger().Warn("corrupt payload",
			"channel", channel,
			"equipment", key.EquipmentID,
			"testpoint", key.TestPointID,
			"tag", key.Tag,
			"error", err)
		if r.OnWarning != nil {
			r.OnWarning(key, err)
		}
	}
}

func (r *Reconstructor) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
