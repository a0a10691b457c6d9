package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores the completed-transaction blob keyed by the
// donor's session. One slot per session: a later donation in the same
// session overwrites the earlier one.
type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Save(ctx context.Context, sessionKey string, payloadJSON string) error {
	query := `
		INSERT INTO sessions (session_key, completed_transaction_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE completed_transaction_json = VALUES(completed_transaction_json), updated_at = VALUES(updated_at)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query, sessionKey, payloadJSON, now, now)
	return err
}

func (r *SessionRepository) Find(ctx context.Context, sessionKey string) (string, error) {
	query := `SELECT completed_transaction_json FROM sessions WHERE session_key = ?`

	var payloadJSON string
	err := r.db.QueryRowContext(ctx, query, sessionKey).Scan(&payloadJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}

	return payloadJSON, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionKey string) error {
	query := `DELETE FROM sessions WHERE session_key = ?`

	_, err := r.db.ExecContext(ctx, query, sessionKey)
	return err
}
