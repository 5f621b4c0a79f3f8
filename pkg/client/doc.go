// Package client talks to an MP server over its JSON/HTTP API.
//
// Every request is wrapped in an envelope carrying the session token; every
// response carries a status code where 200 means success. Calls take one of
// two paths:
//
//   - checked: a code other than 200 is returned as a *ProtocolError
//   - unchecked: the envelope is returned as is and the caller inspects it
//
// A transport failure on either path is reported as ErrNoResponse, which
// callers treat as an absent result rather than retrying.
//
// A Client owns the tag catalogue, the plugin catalogue, the display settings
// cache and the stream subscription registry of one login session. It
// implements subscription.CapabilityProvider and subscription.StreamProtocol,
// so the registry reconciles directly against the server.
//
// Exchanges can be captured with a pkg/log Logger; operational logs go to
// log/slog and counters to an optional Prometheus registerer.
package client
