// Package activity persists a local history of gateway activity:
// connections, logins and dispatched device commands.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Categories recorded in the activity log.
const (
	CategoryConnection = "connection"
	CategoryLogin      = "login"
	CategoryCommand    = "command"
)

// Entry represents a single activity log row.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Action    string    `json:"action"`
	DeviceID  string    `json:"device_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Success   bool      `json:"success"`
}

// Filter controls which entries to return.
type Filter struct {
	Category string // optional: connection, login or command
	DeviceID string // optional: filter by device
	Limit    int    // default 50, max 200
	Offset   int    // pagination offset
}

// ListResult contains the paginated activity results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for activity log operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores activity entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new activity log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new entry. The ID and Timestamp are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "act-" + uuid.NewString()[:8]
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	success := 0
	if entry.Success {
		success = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, timestamp, category, action, device_id, detail, success)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Timestamp.UnixMilli(), entry.Category, entry.Action,
		entry.DeviceID, entry.Detail, success,
	)
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}

	return nil
}

// List returns entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for activity queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE clause is assembled from parameterised conditions only.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM activity_log %s", where) //nolint:gosec // parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting activity entries: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // parameterised conditions, not user input
		"SELECT id, timestamp, category, action, device_id, detail, success FROM activity_log %s ORDER BY timestamp DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var ts int64
		var success int

		if err := rows.Scan(&entry.ID, &ts, &entry.Category, &entry.Action,
			&entry.DeviceID, &entry.Detail, &success); err != nil {
			return nil, fmt.Errorf("scanning activity entry: %w", err)
		}

		entry.Timestamp = time.UnixMilli(ts).UTC()
		entry.Success = success != 0

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
