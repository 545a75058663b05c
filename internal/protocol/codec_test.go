package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestEncodeProducesSingleLine(t *testing.T) {
	frame := Frame{
		Action:   ActionDeviceControl,
		DeviceID: "light_1",
		Command:  CommandSetColor,
		// Values with characters that would break naive framing.
		Value: "#FF0000,{nested}\"quoted\"",
	}

	data, err := Encode(frame)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Error("Encode() output must end with newline")
	}
	if bytes.Count(data, []byte("\n")) != 1 {
		t.Error("Encode() output must contain exactly one newline")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
	}{
		{
			name:  "login",
			frame: Frame{Action: ActionLogin, Username: "admin", Password: `p"ss\word`},
		},
		{
			name:  "control with separators in value",
			frame: Frame{Action: ActionDeviceControl, DeviceID: "tv_1", Command: CommandSetValue, Value: "a,b{c}d"},
		},
		{
			name:  "bare action",
			frame: Frame{Action: ActionGetDevices},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.frame)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			decoded, ok := DecodeLine(bytes.TrimSuffix(data, []byte("\n")))
			if !ok {
				t.Fatal("DecodeLine() failed on encoded frame")
			}

			if decoded.Action != tt.frame.Action {
				t.Errorf("Action = %q, want %q", decoded.Action, tt.frame.Action)
			}
			if decoded.Username != tt.frame.Username {
				t.Errorf("Username = %q, want %q", decoded.Username, tt.frame.Username)
			}
			if decoded.Password != tt.frame.Password {
				t.Errorf("Password = %q, want %q", decoded.Password, tt.frame.Password)
			}
			if decoded.Value != tt.frame.Value {
				t.Errorf("Value = %q, want %q", decoded.Value, tt.frame.Value)
			}
		})
	}
}

func TestDecodeLineMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not an object", `["array"]`},
		{"truncated", `{"action":"DEVICES_LIST","devices":"[`},
		{"missing closing brace", `{"action":"CONNECTED"`},
		{"garbage", "not json at all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, ok := DecodeLine([]byte(tt.line))
			if ok {
				t.Errorf("DecodeLine(%q) ok = true, want false", tt.line)
			}
			if frame.Action != "" {
				t.Errorf("DecodeLine(%q) returned non-zero frame", tt.line)
			}
		})
	}
}

func TestDecodeLineUnknownAction(t *testing.T) {
	// Unknown actions must decode fine; ignoring them is the dispatcher's job.
	frame, ok := DecodeLine([]byte(`{"action":"FUTURE_FEATURE","extra":"ignored"}`))
	if !ok {
		t.Fatal("DecodeLine() failed on well-formed frame with unknown action")
	}
	if frame.Action != "FUTURE_FEATURE" {
		t.Errorf("Action = %q, want FUTURE_FEATURE", frame.Action)
	}
}

func TestDecodeDevicesDoubleEscaped(t *testing.T) {
	devices := []WireDevice{
		{ID: "light_1", Name: "Lámpara salón", Type: "light", Room: "Salón", Status: "true", Value: "3000", Color: "#FFAA00"},
		{ID: "door_1", Name: "Puerta", Type: "door", Room: "Entrada", Status: "false", Value: "0", Color: ""},
		{ID: "spk_1", Name: "Altavoz", Type: "speaker", Room: "Salón", Status: "true", Value: "2", Color: "CMD:PLAY"},
	}

	raw, err := EncodeDevices(devices)
	if err != nil {
		t.Fatalf("EncodeDevices() error: %v", err)
	}

	// The embedded payload must be a JSON string (double-escaped array).
	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		t.Fatalf("embedded payload is not a JSON string: %v", err)
	}
	if !strings.HasPrefix(asString, "[") {
		t.Fatalf("unwrapped payload should be an array, got %q", asString)
	}

	// Full frame round trip, as the server would send it.
	line, err := Encode(Frame{Action: ActionDevicesList, Devices: raw})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	frame, ok := DecodeLine(bytes.TrimSuffix(line, []byte("\n")))
	if !ok {
		t.Fatal("DecodeLine() failed")
	}

	decoded, err := DecodeDevices(frame.Devices)
	if err != nil {
		t.Fatalf("DecodeDevices() error: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("DecodeDevices() returned %d devices, want 3", len(decoded))
	}
	if decoded[0].ID != "light_1" || decoded[0].Name != "Lámpara salón" {
		t.Errorf("first device = %+v", decoded[0])
	}
	if decoded[2].Color != "CMD:PLAY" {
		t.Errorf("speaker color = %q, want CMD:PLAY", decoded[2].Color)
	}
}

func TestDecodeDevicesPlainArray(t *testing.T) {
	// Newer server builds embed the array directly instead of as a string.
	raw := json.RawMessage(`[{"id":"ac_1","type":"ac","status":"false","value":"22"}]`)

	decoded, err := DecodeDevices(raw)
	if err != nil {
		t.Fatalf("DecodeDevices() error: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "ac_1" {
		t.Fatalf("DecodeDevices() = %+v", decoded)
	}
}

func TestDecodeDevicesEmpty(t *testing.T) {
	for _, raw := range []json.RawMessage{nil, json.RawMessage("null"), json.RawMessage("")} {
		decoded, err := DecodeDevices(raw)
		if err != nil {
			t.Fatalf("DecodeDevices(%q) error: %v", raw, err)
		}
		if decoded != nil {
			t.Errorf("DecodeDevices(%q) = %v, want nil", raw, decoded)
		}
	}
}

func TestDecodeDeviceDoubleEscaped(t *testing.T) {
	raw, err := EncodeDevice(WireDevice{
		ID: "cam_1", Name: "Cámara", Type: "camera", Room: "Garaje",
		Status: "true", Value: "150", Color: "",
	})
	if err != nil {
		t.Fatalf("EncodeDevice() error: %v", err)
	}

	device, err := DecodeDevice(raw)
	if err != nil {
		t.Fatalf("DecodeDevice() error: %v", err)
	}
	if device.ID != "cam_1" {
		t.Errorf("ID = %q, want cam_1", device.ID)
	}
	if !device.StatusBool() {
		t.Error("StatusBool() = false, want true")
	}
	if device.ValueInt() != 150 {
		t.Errorf("ValueInt() = %d, want 150", device.ValueInt())
	}
}

func TestDecodeDeviceMissing(t *testing.T) {
	if _, err := DecodeDevice(nil); err == nil {
		t.Error("DecodeDevice(nil) should return error")
	}
	if _, err := DecodeDevice(json.RawMessage(`"not a device"`)); err == nil {
		t.Error("DecodeDevice() on non-object payload should return error")
	}
}

func TestWireDeviceFlexFields(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus bool
		wantValue  int
	}{
		{"quoted strings", `{"id":"d1","status":"true","value":"42"}`, true, 42},
		{"bare literals", `{"id":"d1","status":true,"value":42}`, true, 42},
		{"false status", `{"id":"d1","status":"false","value":"0"}`, false, 0},
		{"malformed value", `{"id":"d1","status":"true","value":"abc"}`, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d WireDevice
			if err := json.Unmarshal([]byte(tt.payload), &d); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if d.StatusBool() != tt.wantStatus {
				t.Errorf("StatusBool() = %v, want %v", d.StatusBool(), tt.wantStatus)
			}
			if d.ValueInt() != tt.wantValue {
				t.Errorf("ValueInt() = %d, want %d", d.ValueInt(), tt.wantValue)
			}
		})
	}
}
