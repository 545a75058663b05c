package database

import (
	"context"
	"fmt"
)

// schema holds the gateway's local tables. The statements are idempotent
// so bootstrap runs unconditionally on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rest_tokens (
		base_url    TEXT PRIMARY KEY,
		username    TEXT NOT NULL,
		token       TEXT NOT NULL,
		expires_at  INTEGER NOT NULL DEFAULT 0,
		updated_at  INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		id          TEXT PRIMARY KEY,
		timestamp   INTEGER NOT NULL,
		category    TEXT NOT NULL,
		action      TEXT NOT NULL,
		device_id   TEXT NOT NULL DEFAULT '',
		detail      TEXT NOT NULL DEFAULT '',
		success     INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_timestamp
		ON activity_log(timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_category
		ON activity_log(category, timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_device
		ON activity_log(device_id) WHERE device_id != ''`,
}

// bootstrap applies the schema inside a single transaction.
func (db *DB) bootstrap(ctx context.Context) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting schema transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}
	return nil
}
