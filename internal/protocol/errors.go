package protocol

import "errors"

// Domain errors for the protocol package.
//
// These errors can be checked using errors.Is() for error handling.
var (
	// ErrEncodeFailed is returned when a frame or payload cannot be serialised.
	ErrEncodeFailed = errors.New("protocol: encode failed")

	// ErrBadPayload is returned when an embedded device payload cannot be parsed.
	// Note that frame-level parse failures never error: DecodeLine reports
	// ok=false and the line is dropped.
	ErrBadPayload = errors.New("protocol: bad payload")
)
