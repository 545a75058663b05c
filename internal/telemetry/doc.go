// Package telemetry records device state history in InfluxDB.
//
// Every cache event becomes a device_state point carrying the raw wire
// status, the polarity-resolved active reading and the device value, so
// dashboards can chart a door's open history without knowing the wire
// inverts its boolean. Writes are batched and non-blocking; the bus is
// optional and the gateway runs fine without it.
package telemetry
