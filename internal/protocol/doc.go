// Package protocol implements the newline-delimited JSON wire protocol
// spoken by the upstream smart-home server.
//
// # Wire Format
//
// Each message is one JSON object on a single line, terminated by '\n':
//
//	{"action":"LOGIN","username":"admin","password":"..."}
//	{"action":"DEVICE_CONTROL","deviceId":"light_1","command":"SET_VALUE","value":"3000"}
//
// Device payloads inside DEVICES_LIST and DEVICE_UPDATED / DEVICE_CHANGED
// frames are double-escaped: the device array or object is serialised to
// JSON, and that JSON text is embedded as a string value of the outer
// frame. DecodeDevices and DecodeDevice unwrap this transparently.
//
// # Tolerant Decoding
//
// DecodeLine never returns an error. Partial lines can arrive mid-stream
// when a connection drops, so malformed input is reported as ok=false and
// dropped by the caller. Frames with an unknown or missing action decode
// successfully and are ignored at dispatch.
//
// # Key Types
//
//   - Frame: One wire message, client- or server-originated
//   - WireDevice: The all-strings device object as transported
package protocol
