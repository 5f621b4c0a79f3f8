// Package series decodes the compact binary time-series payloads served by the
// MP server.
//
// # Wire Format
//
// A payload is the base64 encoding of a flat sequence of 12-byte records:
//
//	offset  size  field
//	0       8     int64 little-endian, 100 ns ticks since 0001-01-01 (.NET epoch)
//	8       4     float32 little-endian IEEE-754 sample value
//
// Ticks are converted to Unix milliseconds as
//
//	ms = (ticks - EpochOffsetTicks) / TicksPerMillisecond + offset
//
// where offset is supplied by the caller (see Decoder.Offset). Use
// LocalOffset when the server encodes ticks in the local timezone.
//
// # Corrupt Payloads
//
// By default the decoder is permissive: a trailing partial record is read with
// the missing bytes treated as zero, and a malformed base64 string yields the
// bytes decoded before the bad symbol. Both conditions are reported through
// Series.Warnings. A strict Decoder returns them as errors instead.
package series
