package activity

import (
	"context"
	"time"
)

// writeTimeout bounds each best-effort insert so a locked database can
// never stall the session's receive loop.
const writeTimeout = 2 * time.Second

// Logger is the minimal logging interface the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Recorder writes session activity to the repository. Inserts are
// best-effort: failures are logged and swallowed, never propagated to
// the caller.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder backed by the given repository.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// RecordConnection logs a connection state change.
func (r *Recorder) RecordConnection(state, detail string) {
	r.write(&Entry{
		Category: CategoryConnection,
		Action:   state,
		Detail:   detail,
		Success:  true,
	})
}

// RecordLogin logs an authentication attempt.
func (r *Recorder) RecordLogin(success bool, username string) {
	action := "success"
	if !success {
		action = "failed"
	}
	r.write(&Entry{
		Category: CategoryLogin,
		Action:   action,
		Detail:   username,
		Success:  success,
	})
}

// RecordCommand logs a dispatched device command.
func (r *Recorder) RecordCommand(deviceID, command, value string) {
	r.write(&Entry{
		Category: CategoryCommand,
		Action:   command,
		DeviceID: deviceID,
		Detail:   value,
		Success:  true,
	})
}

func (r *Recorder) write(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, entry); err != nil && r.logger != nil {
		r.logger.Warn("activity write failed",
			"category", entry.Category,
			"action", entry.Action,
			"error", err,
		)
	}
}
