package session

import (
	"strconv"

	"github.com/nerrad567/homelink/internal/protocol"
)

// Command dispatch: high-level intents funnel into one DEVICE_CONTROL
// frame shape and are sent fire-and-forget. No command waits for a server
// acknowledgement; the authoritative result arrives later as a
// DEVICE_CHANGED push, which corrects any optimistic assumption. Range
// and semantic validity of values are the server's and the device's
// responsibility, not the dispatcher's.

// TurnOn switches a device on (or closes/hides it, for inverted types).
func (c *Client) TurnOn(deviceID string) {
	c.control(deviceID, protocol.CommandOn, "")
}

// TurnOff switches a device off.
func (c *Client) TurnOff(deviceID string) {
	c.control(deviceID, protocol.CommandOff, "")
}

// Toggle flips a device's status.
func (c *Client) Toggle(deviceID string) {
	c.control(deviceID, protocol.CommandToggle, "")
}

// SetValue sets a device's numeric value: brightness, volume, threshold
// or track index depending on the device type.
func (c *Client) SetValue(deviceID string, value int) {
	c.control(deviceID, protocol.CommandSetValue, strconv.Itoa(value))
}

// SetColor sets a device's colour channel to a #RRGGBB value.
func (c *Client) SetColor(deviceID, color string) {
	c.control(deviceID, protocol.CommandSetColor, color)
}

// Speaker sends a speaker transport verb (PLAY, PAUSE, STOP, NEXT, PREV).
func (c *Client) Speaker(deviceID, verb string) {
	c.control(deviceID, protocol.CommandSpeakerCmd, verb)
}

// SpeakerTrack selects a track by index on a speaker.
func (c *Client) SpeakerTrack(deviceID string, track int) {
	c.control(deviceID, protocol.CommandSpeakerCmd, strconv.Itoa(track))
}

// RequestDevices asks the server for a full device list snapshot.
func (c *Client) RequestDevices() {
	c.Send(protocol.Frame{Action: protocol.ActionGetDevices})
}

// RequestRooms asks the server for the room list.
func (c *Client) RequestRooms() {
	c.Send(protocol.Frame{Action: protocol.ActionGetRooms})
}

// control builds and sends the single control frame shape.
func (c *Client) control(deviceID, command, value string) {
	c.recorder.RecordCommand(deviceID, command, value)
	c.Send(protocol.Frame{
		Action:   protocol.ActionDeviceControl,
		DeviceID: deviceID,
		Command:  command,
		Value:    value,
	})
}
