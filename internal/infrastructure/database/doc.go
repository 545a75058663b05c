// Package database provides the SQLite connection used for the gateway's
// local state: persisted REST session tokens and the activity log.
//
// The database is opened with WAL mode and a busy timeout, and the schema
// is applied idempotently on every startup. All device state lives in
// memory and is owned by the upstream server; this file holds only what
// must survive a restart.
package database
