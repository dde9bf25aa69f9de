package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore implements SessionStore over a sessions table joined with
// the users table for the session's user snapshot.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed session store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create persists a new session and assigns its ID
func (s *PostgresStore) Create(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (token_hash, token_prefix, user_id, active_workspace_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var activeWorkspace sql.NullInt64
	if session.ActiveWorkspaceID != nil {
		activeWorkspace = sql.NullInt64{Int64: *session.ActiveWorkspaceID, Valid: true}
	}
	err := s.db.QueryRowContext(ctx, query,
		session.TokenHash, session.TokenPrefix, session.UserID,
		activeWorkspace, session.ExpiresAt, session.CreatedAt,
	).Scan(&session.ID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByTokenHash looks up a session and its user snapshot by token hash
func (s *PostgresStore) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	query := `
		SELECT s.id, s.token_hash, s.token_prefix, s.user_id, s.active_workspace_id,
		       s.expires_at, s.created_at,
		       u.email, u.email_verified
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
	`
	session := &Session{}
	var activeWorkspace sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&session.ID, &session.TokenHash, &session.TokenPrefix, &session.UserID,
		&activeWorkspace, &session.ExpiresAt, &session.CreatedAt,
		&session.User.Email, &session.User.Verified,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	session.User.ID = session.UserID
	if activeWorkspace.Valid {
		session.ActiveWorkspaceID = &activeWorkspace.Int64
	}
	return session, nil
}

// Delete removes a single session
func (s *PostgresStore) Delete(ctx context.Context, sessionID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteForUser removes all sessions for a user
func (s *PostgresStore) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return result.RowsAffected()
}

// SetActiveWorkspace updates the session's sticky workspace
func (s *PostgresStore) SetActiveWorkspace(ctx context.Context, sessionID int64, workspaceID *int64) error {
	var value sql.NullInt64
	if workspaceID != nil {
		value = sql.NullInt64{Int64: *workspaceID, Valid: true}
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET active_workspace_id = $1 WHERE id = $2`, value, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set active workspace: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired removes sessions past their expiry
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
