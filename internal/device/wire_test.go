package device

import (
	"testing"

	"github.com/nerrad567/homelink/internal/protocol"
)

func TestFromWire(t *testing.T) {
	rec := FromWire(protocol.WireDevice{
		ID: "light_1", Name: "Lámpara", Type: "light", Room: "Salón",
		Status: "true", Value: "4500", Color: "#FFAA00",
	})

	if rec.ID != "light_1" || rec.Type != TypeLight {
		t.Errorf("identity fields = %+v", rec)
	}
	if !rec.Status || rec.Value != 4500 {
		t.Errorf("status/value = %v/%d, want true/4500", rec.Status, rec.Value)
	}
	if rec.Speaker != nil {
		t.Error("non-speaker record must not carry speaker state")
	}
}

func TestFromWireUnassignedRoom(t *testing.T) {
	rec := FromWire(protocol.WireDevice{ID: "d1", Type: "camera", Room: ""})
	if rec.Room != RoomUnassigned {
		t.Errorf("Room = %q, want %q", rec.Room, RoomUnassigned)
	}
}

func TestFromWireSpeakerOverload(t *testing.T) {
	rec := FromWire(protocol.WireDevice{
		ID: "spk_1", Type: "speaker", Room: "Salón",
		Status: "true", Value: "2", Color: "CMD:PLAY",
	})

	if rec.Speaker == nil {
		t.Fatal("speaker record must decode CMD colour into SpeakerState")
	}
	if !rec.Speaker.Playing || rec.Speaker.Track != 2 {
		t.Errorf("SpeakerState = %+v, want playing track 2", rec.Speaker)
	}
	// The raw colour channel is preserved for compatibility.
	if rec.Color != "CMD:PLAY" {
		t.Errorf("Color = %q, want CMD:PLAY", rec.Color)
	}
}

func TestFromWireList(t *testing.T) {
	records := FromWireList([]protocol.WireDevice{
		{ID: "a", Type: "light", Status: "false", Value: "0"},
		{ID: "b", Type: "door", Status: "true", Value: "0"},
	})
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if FromWireList(nil) != nil {
		t.Error("FromWireList(nil) should be nil")
	}
}
