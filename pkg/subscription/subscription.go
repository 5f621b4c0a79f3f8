package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Subscription errors.
var (
	ErrHandleNotFound = errors.New("subscription handle not found")
	ErrNoProvider     = errors.New("capability provider or stream protocol missing")
)

// DefaultMaxConcurrentLookups bounds parallel data-source lookups.
const DefaultMaxConcurrentLookups = 8

// Config holds subscription manager configuration.
type Config struct {
	// MaxConcurrentLookups is the maximum number of data-source lookups in
	// flight during Subscribe. Zero or less means DefaultMaxConcurrentLookups.
	MaxConcurrentLookups int
}

// DefaultConfig returns the default subscription configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentLookups: DefaultMaxConcurrentLookups,
	}
}

// Descriptor is the part of a test point the manager needs.
type Descriptor struct {
	ID           string
	EquipmentID  string
	DataSourceID string
	Enabled      bool
}

// Handler receives the frames delivered for one test point.
type Handler interface {
	HandleFrames(testPointID string, frames json.RawMessage)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(testPointID string, frames json.RawMessage)

// HandleFrames calls f.
func (f HandlerFunc) HandleFrames(testPointID string, frames json.RawMessage) {
	f(testPointID, frames)
}

// Candidate is a test point offered to Subscribe. Handler may be nil.
type Candidate struct {
	TestPoint Descriptor
	Handler   Handler
}

// Candidates maps domain objects to candidates. handler may be nil.
func Candidates[T any](items []T, describe func(T) Descriptor, handler func(T) Handler) []Candidate {
	out := make([]Candidate, 0, len(items))
	for _, it := range items {
		c := Candidate{TestPoint: describe(it)}
		if handler != nil {
			c.Handler = handler(it)
		}
		out = append(out, c)
	}
	return out
}

// Handle is a registered subscription.
type Handle struct {
	TestPointID string
	CreatedAt   time.Time
	Handler     Handler
}

// deliver invokes the handler, if any.
func (h *Handle) deliver(frames json.RawMessage) {
	if h.Handler != nil {
		h.Handler.HandleFrames(h.TestPointID, frames)
	}
}

// DataSource is the capability-relevant part of a data source record.
type DataSource struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Plugin  string `json:"plugin"`
	Enabled bool   `json:"enabled"`
}

// PluginInfo describes a data-source plugin.
type PluginInfo struct {
	Key string

	// PushStream reports PRPS streaming support.
	PushStream bool
}

// FrameBatch is one entry of a poll response.
type FrameBatch struct {
	ID     string          `json:"id"`
	Frames json.RawMessage `json:"frames"`
}

// CapabilityProvider resolves data sources and their plugins.
type CapabilityProvider interface {
	// DataSources returns the data sources with the given ids under an equipment.
	DataSources(ctx context.Context, equipmentID string, ids []string) ([]DataSource, error)

	// Plugin returns the plugin registered under key.
	Plugin(key string) (PluginInfo, bool)
}

// StreamProtocol is the server side of streaming.
type StreamProtocol interface {
	// SetStream enables or disables streaming for ids and returns the ids the
	// server accepted.
	SetStream(ctx context.Context, ids []string, enable bool) ([]string, error)

	// PollFrames fetches the frames queued for this session.
	PollFrames(ctx context.Context) ([]FrameBatch, error)
}

// Change reports a registry mutation.
type Change struct {
	Enabled bool
	IDs     []string
}

// PollResult counts the outcome of one Poll.
type PollResult struct {
	Delivered int
	Dropped   int
}
