// Package api provides the gateway's local HTTP status API.
//
// It exposes read-only views of the device cache, room index, session
// state and activity history for dashboards and scripts on the local
// network. All device writes go through the upstream server; this API
// never mutates anything.
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/homelink/internal/activity"
	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/infrastructure/config"
	"github.com/nerrad567/homelink/internal/infrastructure/logging"
	"github.com/nerrad567/homelink/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SessionStatus reports the upstream link state. The TCP session client
// satisfies this.
type SessionStatus interface {
	State() session.State
	Authenticated() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Store    *device.Store
	Activity activity.Repository // optional; activity routes 404 without it
	Session  SessionStatus       // optional; reported as unknown without it
	Version  string
}

// Server is the local status HTTP server.
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	store    *device.Store
	activity activity.Repository
	session  SessionStatus
	version  string
	server   *http.Server
}

// New creates a status server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("device store is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		store:    deps.Store,
		activity: deps.Activity,
		session:  deps.Session,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight
// requests up to the shutdown timeout.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("status API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down status API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
