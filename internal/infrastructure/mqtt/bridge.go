package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/protocol"
)

// Publisher is the subset of Client the bridge needs for state output.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
}

// Subscriber is the subset of Client the bridge needs for command input.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// Commander forwards bus commands to the device session. The TCP
// session client satisfies this.
type Commander interface {
	TurnOn(deviceID string)
	TurnOff(deviceID string)
	Toggle(deviceID string)
	SetValue(deviceID string, value int)
	SetColor(deviceID, color string)
	Speaker(deviceID, verb string)
	SpeakerTrack(deviceID string, track int)
}

// statePayload is the JSON published on device state topics. It carries
// both the raw wire status and the resolved presentation reading so bus
// consumers never re-implement the polarity table.
type statePayload struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Type      device.DeviceType    `json:"type"`
	Room      string               `json:"room"`
	Status    bool                 `json:"status"`
	Active    bool                 `json:"active"`
	Label     string               `json:"label"`
	Value     int                  `json:"value"`
	Color     string               `json:"color,omitempty"`
	Speaker   *device.SpeakerState `json:"speaker,omitempty"`
	Timestamp string               `json:"timestamp"`
}

// commandPayload is the JSON accepted on device command topics.
type commandPayload struct {
	Command string `json:"command"`
	Value   string `json:"value,omitempty"`
}

// Bridge republishes device cache events onto the MQTT bus and feeds
// bus commands into the session dispatcher.
type Bridge struct {
	pub    Publisher
	topics Topics
	logger Logger
}

// NewBridge creates a bridge publishing through pub.
func NewBridge(pub Publisher, logger Logger) *Bridge {
	return &Bridge{pub: pub, logger: logger}
}

// HandleEvent publishes the state carried by one cache event. Wire it
// with store.OnEvent; publish failures are logged, never propagated,
// so a flaky broker cannot stall cache dispatch.
func (b *Bridge) HandleEvent(ev device.Event) {
	switch ev.Kind {
	case device.EventLoaded:
		for _, rec := range ev.Devices {
			b.publishState(rec)
		}
	case device.EventAdded, device.EventUpdated:
		b.publishState(ev.Device)
	}
}

func (b *Bridge) publishState(rec device.Record) {
	payload, err := json.Marshal(statePayload{
		ID:        rec.ID,
		Name:      rec.Name,
		Type:      rec.Type,
		Room:      rec.Room,
		Status:    rec.Status,
		Active:    rec.Active(),
		Label:     device.StatusLabel(rec.Type, rec.Status),
		Value:     rec.Value,
		Color:     rec.Color,
		Speaker:   rec.Speaker,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		if b.logger != nil {
			b.logger.Error("state payload marshal failed", "device_id", rec.ID, "error", err)
		}
		return
	}

	topic := b.topics.DeviceState(rec.Room, rec.ID)
	if err := b.pub.PublishRetained(topic, payload); err != nil {
		if b.logger != nil {
			b.logger.Warn("state publish failed", "topic", topic, "error", err)
		}
	}
}

// BindCommands subscribes to the command wildcard and forwards each
// message to the commander. Malformed payloads and unknown commands are
// rejected with an error (logged by the client's handler wrapper).
func (b *Bridge) BindCommands(sub Subscriber, qos byte, commander Commander) error {
	return sub.Subscribe(b.topics.AllDeviceCommands(), qos, func(topic string, payload []byte) error {
		deviceID := b.topics.DeviceIDFromCommandTopic(topic)
		if deviceID == "" {
			return fmt.Errorf("not a command topic: %s", topic)
		}

		var cmd commandPayload
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return fmt.Errorf("decoding command payload: %w", err)
		}

		return dispatchCommand(commander, deviceID, cmd)
	})
}

func dispatchCommand(commander Commander, deviceID string, cmd commandPayload) error {
	switch cmd.Command {
	case protocol.CommandOn:
		commander.TurnOn(deviceID)
	case protocol.CommandOff:
		commander.TurnOff(deviceID)
	case protocol.CommandToggle:
		commander.Toggle(deviceID)
	case protocol.CommandSetValue:
		value, err := strconv.Atoi(cmd.Value)
		if err != nil {
			return fmt.Errorf("bad SET_VALUE value %q: %w", cmd.Value, err)
		}
		commander.SetValue(deviceID, value)
	case protocol.CommandSetColor:
		commander.SetColor(deviceID, cmd.Value)
	case protocol.CommandSpeakerCmd:
		if track, err := strconv.Atoi(cmd.Value); err == nil {
			commander.SpeakerTrack(deviceID, track)
		} else {
			commander.Speaker(deviceID, cmd.Value)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd.Command)
	}
	return nil
}
