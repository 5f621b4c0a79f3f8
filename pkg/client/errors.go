package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Client errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNotLoggedIn   = errors.New("not logged in")
	ErrLoginFailed   = errors.New("login failed")
	ErrNoResponse    = errors.New("no response from server")
	ErrProtocol      = errors.New("protocol error")
	ErrUnauthorized  = errors.New("unauthorized")
)

// ProtocolError is a response envelope whose code is not 200.
type ProtocolError struct {
	Endpoint string
	Code     int
	Message  string
}

func (e *ProtocolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (code: %d)", e.Endpoint, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: response error code: %d", e.Endpoint, e.Code)
}

// Is matches ErrProtocol, and ErrUnauthorized for 401 and 403 codes.
func (e *ProtocolError) Is(target error) bool {
	switch target {
	case ErrProtocol:
		return true
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden
	}
	return false
}
