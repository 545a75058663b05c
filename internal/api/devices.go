package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homelink/internal/device"
)

// deviceView is the JSON shape served for one device. It carries the
// raw wire status alongside the resolved presentation reading so
// consumers never apply the polarity table themselves.
type deviceView struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Type    device.DeviceType    `json:"type"`
	Room    string               `json:"room"`
	Status  bool                 `json:"status"`
	Active  bool                 `json:"active"`
	Label   string               `json:"label"`
	Value   int                  `json:"value"`
	Color   string               `json:"color,omitempty"`
	Speaker *device.SpeakerState `json:"speaker,omitempty"`
}

func toView(rec device.Record) deviceView {
	return deviceView{
		ID:      rec.ID,
		Name:    rec.Name,
		Type:    rec.Type,
		Room:    rec.Room,
		Status:  rec.Status,
		Active:  rec.Active(),
		Label:   device.StatusLabel(rec.Type, rec.Status),
		Value:   rec.Value,
		Color:   rec.Color,
		Speaker: rec.Speaker,
	}
}

func toViews(records []device.Record) []deviceView {
	views := make([]deviceView, len(records))
	for i, rec := range records {
		views[i] = toView(rec)
	}
	return views
}

// handleListDevices returns all cached devices, optionally narrowed by
// ?type= or ?room=.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var records []device.Record
	switch {
	case r.URL.Query().Get("room") != "":
		records = s.store.ByRoom(r.URL.Query().Get("room"))
	case r.URL.Query().Get("type") != "":
		records = s.store.ByType(device.DeviceType(r.URL.Query().Get("type")))
	default:
		records = s.store.All()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": toViews(records),
		"total":   len(records),
	})
}

// handleGetDevice returns one device by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.store.Get(id)
	if !ok {
		writeNotFound(w, "device not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, toView(rec))
}

// handleListRooms returns all rooms with their device counts.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := s.store.Rooms()
	type roomView struct {
		Name    string `json:"name"`
		Devices int    `json:"devices"`
	}
	views := make([]roomView, len(rooms))
	for i, room := range rooms {
		views[i] = roomView{Name: room, Devices: len(s.store.ByRoom(room))}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": views})
}

// handleRoomDevices returns the devices in one room.
func (s *Server) handleRoomDevices(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")
	records := s.store.ByRoom(room)
	if len(records) == 0 {
		writeNotFound(w, "no devices in room: "+room)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    room,
		"devices": toViews(records),
	})
}
