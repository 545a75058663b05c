package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Encode serialises a frame to a single JSON line terminated by '\n'.
//
// The output never contains an embedded newline: json.Marshal emits a
// compact single-line object and string values escape control characters.
//
// Parameters:
//   - frame: The frame to serialise
//
// Returns:
//   - []byte: UTF-8 JSON line including the trailing newline
//   - error: If the frame cannot be marshalled (should not happen for
//     the fixed Frame shape)
func Encode(frame Frame) ([]byte, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return append(data, '\n'), nil
}

// DecodeLine parses one received line into a Frame.
//
// Degraded parsing is policy, not a bug: partial frames can arrive
// mid-stream, so malformed input yields ok=false and is dropped rather
// than surfaced as an error. A line that is not a brace-delimited JSON
// object never parses.
//
// Parameters:
//   - line: One line as received from the transport, without the newline
//
// Returns:
//   - Frame: The decoded frame (zero value when ok is false)
//   - bool: false if the line could not be parsed
func DecodeLine(line []byte) (Frame, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Frame{}, false
	}

	var frame Frame
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		return Frame{}, false
	}
	return frame, true
}

// DecodeDevices parses the embedded device array of a DEVICES_LIST frame.
//
// The server double-escapes the payload: the array is serialised to a JSON
// string which is then embedded as a string value in the outer frame. The
// raw value is therefore unquoted first and the resulting text parsed as
// the array. A plain nested array (no string wrapping) is also accepted.
func DecodeDevices(raw json.RawMessage) ([]WireDevice, error) {
	payload, err := unwrapEmbedded(raw)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var devices []WireDevice
	if err := json.Unmarshal(payload, &devices); err != nil {
		return nil, fmt.Errorf("%w: device array: %w", ErrBadPayload, err)
	}
	return devices, nil
}

// DecodeDevice parses the embedded device object of a DEVICE_UPDATED or
// DEVICE_CHANGED frame. See DecodeDevices for the escaping rules.
func DecodeDevice(raw json.RawMessage) (WireDevice, error) {
	payload, err := unwrapEmbedded(raw)
	if err != nil {
		return WireDevice{}, err
	}
	if payload == nil {
		return WireDevice{}, fmt.Errorf("%w: missing device payload", ErrBadPayload)
	}

	var device WireDevice
	if err := json.Unmarshal(payload, &device); err != nil {
		return WireDevice{}, fmt.Errorf("%w: device object: %w", ErrBadPayload, err)
	}
	return device, nil
}

// EncodeDevices serialises devices into the double-escaped string form the
// server uses for DEVICES_LIST payloads. Used by tests and the loopback
// tooling to fabricate server frames.
func EncodeDevices(devices []WireDevice) (json.RawMessage, error) {
	inner, err := json.Marshal(devices)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return outer, nil
}

// EncodeDevice serialises one device into the double-escaped string form
// used for DEVICE_UPDATED / DEVICE_CHANGED payloads.
func EncodeDevice(device WireDevice) (json.RawMessage, error) {
	inner, err := json.Marshal(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	outer, err := json.Marshal(string(inner))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return outer, nil
}

// unwrapEmbedded resolves an embedded payload to the JSON text of the
// actual value. String-wrapped payloads are unquoted once; anything else
// is returned as-is. An empty raw value maps to nil.
func unwrapEmbedded(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] != '"' {
		return trimmed, nil
	}

	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, fmt.Errorf("%w: unwrapping embedded payload: %w", ErrBadPayload, err)
	}
	return json.RawMessage(inner), nil
}
