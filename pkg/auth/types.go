package auth

import "time"

// User is the snapshot of account fields the pipeline needs. The full user
// record (profile, preferences) lives with the application layer; sessions
// carry only what downstream guards and handlers read.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

// Session represents a signed-in credential. The opaque token is returned to
// the caller exactly once at sign-in; only its SHA-256 hash is stored.
// Sessions are invalidated on sign-out, password change, or expiry, and are
// never mutated except to refresh ActiveWorkspaceID.
type Session struct {
	ID                int64      `json:"id"`
	TokenHash         string     `json:"-"` // Never expose hash
	TokenPrefix       string     `json:"token_prefix"`
	UserID            int64      `json:"user_id"`
	User              User       `json:"user"`
	ActiveWorkspaceID *int64     `json:"active_workspace_id,omitempty"`
	ExpiresAt         time.Time  `json:"expires_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// SessionContext is what the session guard attaches to request context for
// downstream stages. Deliberately small: user id, email, session id, and the
// sticky workspace used as the last-resort tenant fallback.
type SessionContext struct {
	UserID            int64
	UserEmail         string
	SessionID         int64
	ActiveWorkspaceID *int64
}
