package device

import (
	"strconv"
	"strings"
)

// Record is the cached representation of one smart-home device.
//
// The cache is an authoritative mirror: every field is owned by the
// upstream server and only ever changes in response to a server message.
type Record struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Classification. Determines the valid command vocabulary and the
	// status polarity of the device.
	Type DeviceType `json:"type"`

	// Room is the grouping key. Devices without a room are placed in the
	// RoomUnassigned bucket.
	Room string `json:"room"`

	// Status is the raw wire boolean. Its plain-English meaning depends
	// on the device type: for door and tv types the polarity is inverted
	// (true means closed / hidden). Use Active() for the logical reading.
	Status bool `json:"status"`

	// Value semantics depend on Type: brightness 0-6000 for lights,
	// volume 0-100 for speakers, IR threshold for cameras, track index.
	Value int `json:"value"`

	// Color is a #RRGGBB hex colour. For speakers the server overloads
	// this field with the last command verb as "CMD:<verb>"; the parsed
	// form is exposed through Speaker instead.
	Color string `json:"color"`

	// Speaker holds the typed speaker state decoded from the overloaded
	// Color channel. Nil for non-speaker devices.
	Speaker *SpeakerState `json:"speaker,omitempty"`
}

// SpeakerState is the typed decoding of the speaker Color overload.
type SpeakerState struct {
	// Playing is true after a PLAY verb and false after PAUSE or STOP.
	Playing bool `json:"playing"`

	// Track is the current track index (from a numeric speaker command,
	// mirrored from the device value).
	Track int `json:"track"`

	// LastCommand is the most recent verb seen on the wire (PLAY, PAUSE,
	// STOP, NEXT, PREV or a track number).
	LastCommand string `json:"last_command,omitempty"`
}

// DeviceType classifies a device and selects its command vocabulary.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// Device types known to the upstream server. Unknown types are carried
// through verbatim; the cache never rejects a record for its type.
const (
	TypeLight   DeviceType = "light"
	TypeDoor    DeviceType = "door"
	TypeTV      DeviceType = "tv"
	TypeSpeaker DeviceType = "speaker"
	TypeCamera  DeviceType = "camera"
	TypeAC      DeviceType = "ac"
	TypeWasher  DeviceType = "washer"
	TypeBlind   DeviceType = "blind"
)

// RoomUnassigned is the sentinel bucket for devices with no room.
const RoomUnassigned = "unassigned"

// speakerCommandPrefix marks a command verb carried in the Color field.
const speakerCommandPrefix = "CMD:"

// invertedStatus lists the device types whose wire boolean means the
// opposite of its plain-English reading: status=true is "closed" for
// doors and "hidden" for tv lifts. This quirk is owned by the server and
// must be preserved, never "fixed" at individual call sites.
var invertedStatus = map[DeviceType]bool{
	TypeDoor: true,
	TypeTV:   true,
}

// StatusInverted reports whether the wire boolean of this device type is
// inverted relative to its plain-English meaning.
func StatusInverted(t DeviceType) bool {
	return invertedStatus[t]
}

// Active reports the logical, presentation-level state of the record:
// true means on / open / visible regardless of the wire polarity.
func (r Record) Active() bool {
	if invertedStatus[r.Type] {
		return !r.Status
	}
	return r.Status
}

// StatusLabel returns the display label for a device's wire status,
// applying the per-type polarity inversion in one place. Both the native
// and browser-mirror surfaces use this table; call sites never negate
// the raw boolean themselves.
func StatusLabel(t DeviceType, status bool) string {
	switch t {
	case TypeDoor:
		if status {
			return "closed"
		}
		return "open"
	case TypeTV:
		if status {
			return "hidden"
		}
		return "visible"
	default:
		if status {
			return "on"
		}
		return "off"
	}
}

// NormalizeRoom maps an empty or blank room to the RoomUnassigned bucket.
func NormalizeRoom(room string) string {
	if strings.TrimSpace(room) == "" {
		return RoomUnassigned
	}
	return room
}

// ParseSpeakerColor decodes the overloaded Color channel of a speaker.
//
// A "CMD:<verb>" value is a transient command echo; anything else is a
// plain colour and yields no state change information. The track index is
// mirrored from the device value.
//
// Returns nil when the colour carries no command.
func ParseSpeakerColor(color string, value int) *SpeakerState {
	if !strings.HasPrefix(color, speakerCommandPrefix) {
		return nil
	}

	verb := strings.TrimPrefix(color, speakerCommandPrefix)
	state := &SpeakerState{
		Track:       value,
		LastCommand: verb,
	}

	switch verb {
	case "PLAY", "NEXT", "PREV":
		state.Playing = true
	case "PAUSE", "STOP":
		state.Playing = false
	default:
		// A numeric verb selects a track and implies playback.
		if n, err := strconv.Atoi(verb); err == nil {
			state.Track = n
			state.Playing = true
		}
	}

	return state
}
