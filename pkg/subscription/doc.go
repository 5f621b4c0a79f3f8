// Package subscription keeps the set of live PRPS stream subscriptions in
// sync with the server.
//
// A test point can be streamed only when its data source is enabled and the
// data source's plugin declares push-stream support (prps). The Manager
// filters candidates down to those test points, asks the server to enable
// them in a single request and registers a Handle for every id the server
// accepted. The server is authoritative: the accepted set may be a strict
// subset of the request.
//
// # Polling
//
// Poll fetches one batch of frames and hands each entry to the handler of
// the matching Handle. Frames for ids without a Handle are dropped. They are
// expected after UnsubscribeAll raced an in-flight poll.
//
// # Lifecycle
//
// Handles are created only by Subscribe and destroyed only by UnsubscribeAll.
// Subscribe and UnsubscribeAll are serialized against each other; Poll and
// the read accessors may run concurrently with them.
package subscription
