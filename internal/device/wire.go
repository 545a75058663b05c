package device

import "github.com/nerrad567/homelink/internal/protocol"

// FromWire converts a wire device object into a cache Record.
//
// The all-strings wire form is normalised here: status and value become
// typed fields, empty rooms map to the unassigned bucket, and the speaker
// Color overload is decoded into typed SpeakerState while the raw Color
// string is preserved for compatibility.
func FromWire(w protocol.WireDevice) Record {
	r := Record{
		ID:     w.ID,
		Name:   w.Name,
		Type:   DeviceType(w.Type),
		Room:   NormalizeRoom(w.Room),
		Status: w.StatusBool(),
		Value:  w.ValueInt(),
		Color:  w.Color,
	}

	if r.Type == TypeSpeaker {
		r.Speaker = ParseSpeakerColor(w.Color, r.Value)
	}

	return r
}

// FromWireList converts a wire device array into cache Records.
func FromWireList(wires []protocol.WireDevice) []Record {
	if wires == nil {
		return nil
	}
	records := make([]Record, 0, len(wires))
	for _, w := range wires {
		records = append(records, FromWire(w))
	}
	return records
}
