package telemetry

import "errors"

// Domain-specific errors for telemetry operations.
var (
	// ErrDisabled is returned by Connect when telemetry is off in config.
	ErrDisabled = errors.New("telemetry: disabled in configuration")

	// ErrConnectionFailed is returned when the initial connection fails.
	ErrConnectionFailed = errors.New("telemetry: connection failed")

	// ErrNotConnected is returned for operations on a closed client.
	ErrNotConnected = errors.New("telemetry: client not connected")
)
