package session

import "errors"

// Domain errors for the session package.
//
// These errors can be checked using errors.Is() for error handling.
var (
	// ErrConnectFailed is returned when the TCP dial fails or times out.
	ErrConnectFailed = errors.New("session: connect failed")
)
