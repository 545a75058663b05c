package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/homelink/internal/device"
)

// WriteDeviceState records the numeric facets of one device record:
// the raw status as 0/1, the resolved active reading as 0/1, and the
// device value. Tagged by device id, type and room so per-room series
// queries stay cheap.
//
// The write is non-blocking; data is batched and sent asynchronously.
func (c *Client) WriteDeviceState(rec device.Record) {
	if !c.IsConnected() {
		return
	}

	status := 0.0
	if rec.Status {
		status = 1.0
	}
	active := 0.0
	if rec.Active() {
		active = 1.0
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id": rec.ID,
			"type":      string(rec.Type),
			"room":      rec.Room,
		},
		map[string]interface{}{
			"status": status,
			"active": active,
			"value":  float64(rec.Value),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// HandleEvent records telemetry for one cache event. Wire it with
// store.OnEvent alongside the MQTT bridge.
func (c *Client) HandleEvent(ev device.Event) {
	switch ev.Kind {
	case device.EventLoaded:
		for _, rec := range ev.Devices {
			c.WriteDeviceState(rec)
		}
	case device.EventAdded, device.EventUpdated:
		c.WriteDeviceState(ev.Device)
	}
}

// WriteConnectionState records session connectivity as a 0/1 gauge so
// dashboards can graph uptime and correlate gaps with device series.
func (c *Client) WriteConnectionState(connected bool) {
	if !c.IsConnected() {
		return
	}

	value := 0.0
	if connected {
		value = 1.0
	}

	point := write.NewPoint(
		"session",
		map[string]string{"link": "tcp"},
		map[string]interface{}{"connected": value},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
