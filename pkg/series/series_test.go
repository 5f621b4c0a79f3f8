package series

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(ticks int64, value float32) []byte {
	buf := make([]byte, RecordSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(ticks))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(value))
	return buf
}

func TestDecodeTwoRecordsTenSecondsApart(t *testing.T) {
	data := append(record(638352672000000000, 12.5), record(638352672100000000, 7.25)...)
	payload := base64.StdEncoding.EncodeToString(data)

	s, err := Decoder{}.Decode(payload)
	require.NoError(t, err)
	assert.Empty(t, s.Warnings())

	samples := s.Samples()
	require.Len(t, samples, 2)

	want := time.Date(2023, 11, 11, 2, 40, 0, 0, time.UTC)
	assert.True(t, samples[0].Timestamp.Equal(want), "got %v", samples[0].Timestamp)
	assert.Equal(t, 12.5, samples[0].Value)
	assert.Equal(t, 10*time.Second, samples[1].Timestamp.Sub(samples[0].Timestamp))
	assert.Equal(t, 7.25, samples[1].Value)
}

func TestDecodeRoundTrip(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	offsets := []time.Duration{0, -8 * time.Hour, 2 * time.Hour}
	values := []float64{0, 1, -3.5, 1024.25, float64(float32(0.1))}

	for _, off := range offsets {
		in := make([]Sample, 0, len(values))
		for i, v := range values {
			in = append(in, Sample{Timestamp: base.Add(time.Duration(i) * 1500 * time.Millisecond), Value: v})
		}

		s, err := Decoder{Offset: off}.Decode(Encode(in, off))
		require.NoError(t, err)
		out := s.Samples()
		require.Len(t, out, len(in))
		for i := range in {
			assert.True(t, in[i].Timestamp.Equal(out[i].Timestamp), "offset %v sample %d: %v != %v", off, i, in[i].Timestamp, out[i].Timestamp)
			assert.Equal(t, in[i].Value, out[i].Value)
		}
	}
}

func TestDecodeRecordFieldsRoundTrip(t *testing.T) {
	ticks := int64(638500000000000000)
	s, err := Decoder{}.DecodeBytes(record(ticks, 42.75))
	require.NoError(t, err)

	got := s.Samples()[0]
	assert.Equal(t, ticks, TicksFromTime(got.Timestamp, 0))
	assert.Equal(t, 42.75, got.Value)
}

func TestDecodeOffsetShiftsTimestamps(t *testing.T) {
	data := record(638352672000000000, 1)

	utc, err := Decoder{}.DecodeBytes(data)
	require.NoError(t, err)
	shifted, err := Decoder{Offset: -8 * time.Hour}.DecodeBytes(data)
	require.NoError(t, err)

	a := utc.Samples()[0].Timestamp
	b := shifted.Samples()[0].Timestamp
	assert.Equal(t, -8*time.Hour, b.Sub(a))
}

func TestDecodeEmptyPayload(t *testing.T) {
	for _, payload := range []string{"", "   ", "\n"} {
		s, err := Decoder{Strict: true}.Decode(payload)
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
		assert.Empty(t, s.Samples())
		assert.Empty(t, s.Warnings())
	}
}

func TestDecodePartialRecordPermissive(t *testing.T) {
	data := append(record(638352672000000000, 3), 0x01, 0x02, 0x03)

	s, err := Decoder{}.DecodeBytes(data)
	require.NoError(t, err)
	require.Len(t, s.Warnings(), 1)
	assert.ErrorIs(t, s.Warnings()[0], ErrPartialRecord)

	samples := s.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, 3.0, samples[0].Value)

	// Missing bytes read as zero: ticks 0x030201, value 0.
	assert.Equal(t, TimeFromTicks(0x030201, 0), samples[1].Timestamp)
	assert.Equal(t, 0.0, samples[1].Value)
}

func TestDecodePartialRecordStrict(t *testing.T) {
	data := append(record(638352672000000000, 3), 0x01)

	_, err := Decoder{Strict: true}.DecodeBytes(data)
	assert.ErrorIs(t, err, ErrPartialRecord)

	_, err = Decoder{Strict: true}.Decode(base64.StdEncoding.EncodeToString(data))
	assert.ErrorIs(t, err, ErrPartialRecord)
}

func TestDecodeMalformedBase64(t *testing.T) {
	good := base64.StdEncoding.EncodeToString(record(638352672000000000, 5))
	payload := good + "!!!!"

	s, err := Decoder{}.Decode(payload)
	require.NoError(t, err)
	require.NotEmpty(t, s.Warnings())
	assert.ErrorIs(t, s.Warnings()[0], ErrMalformedPayload)
	samples := s.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, 5.0, samples[0].Value)

	_, err = Decoder{Strict: true}.Decode(payload)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestSeriesIsRestartable(t *testing.T) {
	in := []Sample{
		{Timestamp: time.UnixMilli(1000).UTC(), Value: 1},
		{Timestamp: time.UnixMilli(2000).UTC(), Value: 2},
		{Timestamp: time.UnixMilli(3000).UTC(), Value: 3},
	}
	s, err := Decoder{}.Decode(Encode(in, 0))
	require.NoError(t, err)

	first := s.Samples()
	second := s.Samples()
	assert.Equal(t, first, second)

	// Early break does not disturb later iterations.
	for range s.All() {
		break
	}
	assert.Len(t, s.Samples(), 3)
}

func TestLocalOffsetSign(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	orig := time.Local
	time.Local = loc
	defer func() { time.Local = orig }()

	assert.Equal(t, -8*time.Hour, LocalOffset(time.Now()))
}
