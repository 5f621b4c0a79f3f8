// Package events reconstructs state intervals from decoded event payloads.
//
// The server reports discrete state changes (connection state, test point
// state, PD diagnosis class, ...) as a binary time series where every sample
// carries the state as its value. Reconstruct walks such a series and emits one
// Interval per run of equal states. An interval is closed by the sample that
// starts the next one; the last interval stays open.
//
// A tag may carry a satellite channel: a second series sampled at the same
// timestamps whose value annotates the interval that starts there (for
// example the PD class or the average amplitude). Satellite values attach by
// exact millisecond match only.
//
// Reconstruct handles a single (equipment, test point, tag) group. List and
// Builder assemble the groups of a whole events response.
package events
