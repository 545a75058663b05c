package session

import (
	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/protocol"
)

// handleLine decodes and dispatches one received line.
//
// Malformed lines and unknown actions are absorbed here: a partial frame
// from a dropped connection or a new server-side action must never be
// fatal to the session or touch the cache.
func (c *Client) handleLine(line []byte) {
	frame, ok := protocol.DecodeLine(line)
	if !ok {
		c.logger.Debug("dropping unparseable line", "bytes", len(line))
		return
	}

	switch frame.Action {
	case protocol.ActionConnected:
		c.handleConnected()
	case protocol.ActionLoginSuccess:
		c.handleLoginSuccess(frame)
	case protocol.ActionLoginFailed:
		c.handleLoginFailed()
	case protocol.ActionDevicesList:
		c.handleDevicesList(frame)
	case protocol.ActionDeviceUpdated, protocol.ActionDeviceChanged:
		c.handleDeviceChanged(frame)
	case protocol.ActionPong, protocol.ActionRegistered:
		// Keep-alive bookkeeping only.
		c.logger.Debug("server acknowledgement", "action", frame.Action)
	case "":
		c.logger.Debug("frame without action ignored")
	default:
		// Forward-compatible no-op.
		c.logger.Debug("unknown action ignored", "action", frame.Action)
	}
}

// handleConnected submits the configured credentials. The server opens
// every session with CONNECTED and expects LOGIN next.
func (c *Client) handleConnected() {
	c.logger.Info("server session open, logging in", "username", c.cfg.Username)
	c.Send(protocol.Frame{
		Action:   protocol.ActionLogin,
		Username: c.cfg.Username,
		Password: c.cfg.Password,
	})
}

// handleLoginSuccess marks the session authenticated and immediately
// requests the device list.
func (c *Client) handleLoginSuccess(frame protocol.Frame) {
	c.setAuthenticated(true)
	c.recorder.RecordLogin(true, frame.Username)
	c.logger.Info("login accepted", "username", frame.Username)

	c.Send(protocol.Frame{Action: protocol.ActionGetDevices})
}

// handleLoginFailed records the rejection. This is a recoverable,
// user-visible state, not an error: the caller may retry with different
// credentials.
func (c *Client) handleLoginFailed() {
	c.setAuthenticated(false)
	c.recorder.RecordLogin(false, c.cfg.Username)
	c.logger.Warn("login rejected", "username", c.cfg.Username)
}

// handleDevicesList replaces the cache with the embedded device array.
// A bad payload leaves the cache untouched.
func (c *Client) handleDevicesList(frame protocol.Frame) {
	wires, err := protocol.DecodeDevices(frame.Devices)
	if err != nil {
		c.logger.Warn("device list payload rejected", "error", err)
		return
	}

	c.store.ReplaceAll(device.FromWireList(wires))
	c.logger.Info("device list loaded", "count", len(wires))
}

// handleDeviceChanged upserts the embedded device object. DEVICE_UPDATED
// and DEVICE_CHANGED are treated identically; both are authoritative
// pushes that overwrite any optimistic local assumption.
func (c *Client) handleDeviceChanged(frame protocol.Frame) {
	wire, err := protocol.DecodeDevice(frame.Device)
	if err != nil {
		c.logger.Warn("device payload rejected", "error", err)
		return
	}

	c.store.Upsert(device.FromWire(wire))
}
