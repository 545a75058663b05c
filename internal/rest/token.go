package rest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpired inspects a JWT's exp claim without verifying the
// signature. The server owns verification; the client only needs to
// know whether presenting the token is pointless. Tokens without an
// exp claim, or that fail to parse, are treated as expired.
func TokenExpired(token string, now time.Time) (bool, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true, fmt.Errorf("parsing token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true, fmt.Errorf("token has no usable expiry")
	}
	return now.After(exp.Time), nil
}

// SQLiteTokenStore persists one token per server base URL.
type SQLiteTokenStore struct {
	db *sql.DB
}

// NewSQLiteTokenStore creates a token store backed by the given database.
func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db}
}

// Save upserts the token for a base URL. The expiry is extracted from
// the token itself when present.
func (s *SQLiteTokenStore) Save(ctx context.Context, baseURL, username, token string) error {
	var expiresAt int64
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			expiresAt = exp.Time.UnixMilli()
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rest_tokens (base_url, username, token, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(base_url) DO UPDATE SET
			username = excluded.username,
			token = excluded.token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		baseURL, username, token, expiresAt, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

// Load returns the persisted token for a base URL. A missing row is not
// an error; both return values are empty.
func (s *SQLiteTokenStore) Load(ctx context.Context, baseURL string) (string, string, error) {
	var username, token string
	err := s.db.QueryRowContext(ctx,
		"SELECT username, token FROM rest_tokens WHERE base_url = ?", baseURL,
	).Scan(&username, &token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("loading token: %w", err)
	}
	return username, token, nil
}

// Delete removes the persisted token for a base URL.
func (s *SQLiteTokenStore) Delete(ctx context.Context, baseURL string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM rest_tokens WHERE base_url = ?", baseURL,
	); err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}
