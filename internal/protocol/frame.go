package protocol

import (
	"encoding/json"
	"strconv"
)

// Server and client actions carried in the "action" field of a frame.
//
// The wire vocabulary is fixed by the upstream smart-home server; unknown
// actions received from the server are ignored for forward compatibility.
const (
	// Client → server.
	ActionLogin         = "LOGIN"
	ActionGetDevices    = "GET_DEVICES"
	ActionGetRooms      = "GET_ROOMS"
	ActionDeviceControl = "DEVICE_CONTROL"
	ActionDisconnect    = "DISCONNECT"
	ActionPing          = "PING"

	// Server → client.
	ActionConnected     = "CONNECTED"
	ActionLoginSuccess  = "LOGIN_SUCCESS"
	ActionLoginFailed   = "LOGIN_FAILED"
	ActionDevicesList   = "DEVICES_LIST"
	ActionDeviceUpdated = "DEVICE_UPDATED"
	ActionDeviceChanged = "DEVICE_CHANGED"
	ActionPong          = "PONG"
	ActionRegistered    = "REGISTERED"
)

// Control commands carried in the "command" field of DEVICE_CONTROL frames.
const (
	CommandOn         = "ON"
	CommandOff        = "OFF"
	CommandToggle     = "TOGGLE"
	CommandSetValue   = "SET_VALUE"
	CommandSetColor   = "SET_COLOR"
	CommandSpeakerCmd = "SPEAKER_CMD"
)

// Speaker verbs carried in the "value" field of SPEAKER_CMD frames.
// A bare integer value selects a track index instead.
const (
	SpeakerPlay  = "PLAY"
	SpeakerPause = "PAUSE"
	SpeakerStop  = "STOP"
	SpeakerNext  = "NEXT"
	SpeakerPrev  = "PREV"
)

// Frame is one newline-terminated JSON object exchanged with the server.
//
// The Devices and Device fields are raw JSON because the server embeds
// device payloads as escaped JSON strings inside the outer frame (the
// array/object is serialised once, then serialised again as a string
// value). DecodeDevices / DecodeDevice handle both the escaped-string
// form and a plain nested form.
type Frame struct {
	Action   string          `json:"action"`
	Username string          `json:"username,omitempty"`
	Password string          `json:"password,omitempty"`
	DeviceID string          `json:"deviceId,omitempty"`
	Command  string          `json:"command,omitempty"`
	Value    string          `json:"value,omitempty"`
	Source   string          `json:"source,omitempty"`
	Devices  json.RawMessage `json:"devices,omitempty"`
	Device   json.RawMessage `json:"device,omitempty"`
}

// WireDevice is the device object as it appears on the wire.
//
// Every field is transported as a string: status is "true"/"false" and
// value is a decimal integer in quotes. flexString additionally tolerates
// bare booleans and numbers from newer server builds.
type WireDevice struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Type   string     `json:"type"`
	Room   string     `json:"room"`
	Status flexString `json:"status"`
	Value  flexString `json:"value"`
	Color  string     `json:"color"`
}

// StatusBool reports the wire status as a boolean. Anything other than
// "true" is false.
func (d WireDevice) StatusBool() bool {
	return string(d.Status) == "true"
}

// ValueInt reports the wire value as an integer. Malformed values map to 0;
// the server owns range validation, the client only mirrors.
func (d WireDevice) ValueInt() int {
	n, err := strconv.Atoi(string(d.Value))
	if err != nil {
		return 0
	}
	return n
}

// flexString is a string that also accepts bare JSON booleans and numbers,
// normalising them to their literal text.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	// Bare literal (true, false, 42): keep the literal text.
	*f = flexString(data)
	return nil
}

// MarshalJSON implements json.Marshaler, always emitting the quoted form
// the server expects.
func (f flexString) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}
