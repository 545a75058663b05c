package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{id}", s.handleGetDevice)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.Get("/{room}/devices", s.handleRoomDevices)
		})

		r.Get("/activity", s.handleActivity)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleStatus reports the upstream session link and cache totals.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	link := "unknown"
	authenticated := false
	if s.session != nil {
		link = string(s.session.State())
		authenticated = s.session.Authenticated()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"link":          link,
		"authenticated": authenticated,
		"devices":       s.store.Count(),
		"active":        s.store.ActiveCount(),
		"rooms":         len(s.store.Rooms()),
		"version":       s.version,
	})
}
