package mqtt

import "strings"

// Topic namespace for all gateway messages.
const topicPrefix = "homelink"

// Topics builds the gateway's MQTT topic names. The zero value is ready
// to use; the type exists so topic construction is discoverable and
// testable rather than scattered string formatting.
//
// Layout:
//
//	homelink/system/status            gateway online/offline (retained)
//	homelink/state/<room>/<device>    device state mirror (retained)
//	homelink/command/<device>         inbound commands for the dispatcher
type Topics struct{}

// SystemStatus returns the gateway status topic.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// DeviceState returns the state topic for one device. Room names are
// slugified so they form a single topic level.
func (Topics) DeviceState(room, deviceID string) string {
	return topicPrefix + "/state/" + slugify(room) + "/" + deviceID
}

// AllDeviceStates returns a wildcard matching every device state topic.
func (Topics) AllDeviceStates() string {
	return topicPrefix + "/state/+/+"
}

// DeviceCommand returns the command topic for one device.
func (Topics) DeviceCommand(deviceID string) string {
	return topicPrefix + "/command/" + deviceID
}

// AllDeviceCommands returns a wildcard matching every command topic.
func (Topics) AllDeviceCommands() string {
	return topicPrefix + "/command/+"
}

// DeviceIDFromCommandTopic extracts the device id from a command topic.
// It returns "" when the topic is not a command topic.
func (Topics) DeviceIDFromCommandTopic(topic string) string {
	prefix := topicPrefix + "/command/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

// slugify lowercases a room name and replaces characters that are
// meaningful in MQTT topics. Empty rooms map to "unassigned".
func slugify(room string) string {
	if room == "" {
		return "unassigned"
	}
	var b strings.Builder
	b.Grow(len(room))
	for _, r := range strings.ToLower(room) {
		switch {
		case r == ' ' || r == '/' || r == '+' || r == '#':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
