package log

import (
	"time"
)

// Event represents a protocol capture event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the client session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Server is the server base URL.
	Server string `cbor:"6,keyasint,omitempty"`

	// User is the login name (populated after login).
	User string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Exchange    *ExchangeEvent    `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message from the server.
	DirectionIn Direction = 0
	// DirectionOut indicates a message to the server.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerTransport is the HTTP layer.
	LayerTransport Layer = 0
	// LayerEnvelope is the decoded response envelope.
	LayerEnvelope Layer = 1
	// LayerClient is the client API layer (sessions, subscriptions).
	LayerClient Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerEnvelope:
		return "ENVELOPE"
	case LayerClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryExchange indicates a request or response.
	CategoryExchange Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryExchange:
		return "EXCHANGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ExchangeEvent captures one side of an HTTP exchange.
type ExchangeEvent struct {
	// Type distinguishes request and response.
	Type ExchangeType `cbor:"1,keyasint"`

	// Endpoint is the request path, e.g. "/api/stat".
	Endpoint string `cbor:"2,keyasint"`

	// Size is the body size in bytes.
	Size int `cbor:"3,keyasint"`

	// Body is the body (may be truncated for large bodies).
	Body []byte `cbor:"4,keyasint,omitempty"`

	// Truncated indicates if Body was truncated.
	Truncated bool `cbor:"5,keyasint,omitempty"`

	// For responses: the HTTP status.
	Status *int `cbor:"6,keyasint,omitempty"`

	// For envelope events: the envelope code.
	Code *int `cbor:"7,keyasint,omitempty"`

	// For responses: the round trip time. Stored as nanoseconds.
	Duration *time.Duration `cbor:"8,keyasint,omitempty"`
}

// ExchangeType distinguishes request and response.
type ExchangeType uint8

const (
	// ExchangeRequest indicates a request.
	ExchangeRequest ExchangeType = 0
	// ExchangeResponse indicates a response.
	ExchangeResponse ExchangeType = 1
)

// String returns the exchange type name.
func (e ExchangeType) String() string {
	switch e {
	case ExchangeRequest:
		return "REQUEST"
	case ExchangeResponse:
		return "RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures session and subscription lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySession indicates a login session change.
	StateEntitySession StateEntity = 1
	// StateEntitySubscription indicates a stream subscription change.
	StateEntitySubscription StateEntity = 3
	// StateEntityPoller indicates a poll loop change.
	StateEntityPoller StateEntity = 4
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityPoller:
		return "POLLER"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the envelope code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
