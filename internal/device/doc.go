// Package device provides the device state cache for Homelink.
//
// The cache is an authoritative mirror of the upstream server's device
// registry. It is keyed by device id with a secondary index by room, and
// its contents change only as a result of inbound protocol messages:
// DEVICES_LIST replaces the cache wholesale, DEVICE_UPDATED and
// DEVICE_CHANGED upsert one record. No other component writes to it.
//
// # Key Types
//
//   - Record: One cached device (id, name, type, room, status, value, color)
//   - Store: The id- and room-indexed cache with event fan-out
//   - SpeakerState: Typed decoding of the speaker Color command overload
//   - Event: Raised on loaded / added / updated mutations
//
// # Status Polarity
//
// For door and tv device types the wire boolean is inverted relative to
// its plain-English meaning (status=true is "closed" / "hidden"). This is
// a server-owned quirk that is preserved exactly; the inversion lives in
// one lookup (StatusInverted, StatusLabel, Record.Active) used uniformly
// by every presentation surface, never scattered through call sites.
//
// # Usage
//
//	store := device.NewStore()
//	store.SetLogger(log)
//	store.OnEvent(func(ev device.Event) {
//	    // react to loaded/added/updated
//	})
//
//	store.ReplaceAll(records)              // DEVICES_LIST
//	store.Upsert(record)                   // DEVICE_CHANGED
//	lights := store.ByType(device.TypeLight)
//	rooms := store.Rooms()
//
// # Thread Safety
//
// The Store is safe for concurrent use. The intended discipline is a
// single writer (the protocol handler) with any number of readers; events
// are dispatched from one goroutine in apply order.
package device
