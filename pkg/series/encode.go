package series

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"time"
)

// EncodeRecord writes one sample into dst, which must hold RecordSize bytes.
func EncodeRecord(dst []byte, s Sample, offset time.Duration) {
	_ = dst[RecordSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], uint64(TicksFromTime(s.Timestamp, offset)))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(float32(s.Value)))
}

// EncodeBytes returns the raw record bytes for samples.
func EncodeBytes(samples []Sample, offset time.Duration) []byte {
	buf := make([]byte, len(samples)*RecordSize)
	for i, s := range samples {
		EncodeRecord(buf[i*RecordSize:], s, offset)
	}
	return buf
}

// Encode returns the base64 payload for samples.
func Encode(samples []Sample, offset time.Duration) string {
	return base64.StdEncoding.EncodeToString(EncodeBytes(samples, offset))
}
