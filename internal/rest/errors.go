package rest

import (
	"errors"
	"fmt"
)

// Sentinel errors for REST operations.
var (
	// ErrRequestFailed indicates the request never produced a response.
	ErrRequestFailed = errors.New("rest: request failed")

	// ErrUnauthorized indicates the server rejected the credentials or
	// the bearer token.
	ErrUnauthorized = errors.New("rest: unauthorized")
)

// ServerError is a non-2xx response carrying the server's message.
type ServerError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rest: server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("rest: %s (status %d)", e.Message, e.StatusCode)
}
