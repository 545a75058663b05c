package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/homelink/internal/activity"
)

// handleActivity returns the persisted activity log, newest first.
// Supported query parameters: category, device_id, limit, offset.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		writeNotFound(w, "activity log not configured")
		return
	}

	filter := activity.Filter{
		Category: r.URL.Query().Get("category"),
		DeviceID: r.URL.Query().Get("device_id"),
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.activity.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("activity query failed", "error", err)
		writeInternalError(w, "activity query failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
