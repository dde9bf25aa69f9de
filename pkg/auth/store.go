package auth

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when no session matches the presented
// credential. Callers translate it into an Unauthenticated guard failure;
// the store itself stays transport-agnostic.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists sessions. Two implementations exist: the Postgres
// store used in deployments and an in-memory store for tests and
// single-node development.
type SessionStore interface {
	// Create persists a new session and assigns its ID
	Create(ctx context.Context, session *Session) error

	// GetByTokenHash looks up a session by the hash of its opaque token,
	// including the owning user snapshot. Returns ErrSessionNotFound when no
	// row matches. Expiry is NOT filtered here; resolution decides what an
	// expired row means.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)

	// Delete removes a single session (sign-out)
	Delete(ctx context.Context, sessionID int64) error

	// DeleteForUser removes all sessions for a user (password change)
	DeleteForUser(ctx context.Context, userID int64) (int64, error)

	// SetActiveWorkspace updates the session's sticky workspace. The only
	// mutation a live session ever receives.
	SetActiveWorkspace(ctx context.Context, sessionID int64, workspaceID *int64) error

	// DeleteExpired removes sessions past their expiry, returning the count
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service wraps a SessionStore with token generation and resolution. It is
// the single place that knows tokens are hashed at rest.
type Service struct {
	store     SessionStore
	generator *TokenGenerator
	ttl       time.Duration
}

// NewService creates a session service with the given session lifetime
func NewService(store SessionStore, ttl time.Duration) *Service {
	return &Service{
		store:     store,
		generator: NewTokenGenerator(),
		ttl:       ttl,
	}
}

// Store returns the underlying session store
func (s *Service) Store() SessionStore {
	return s.store
}

// CreateForUser mints a session for a verified credential. The plaintext
// token is returned exactly once and never persisted.
func (s *Service) CreateForUser(ctx context.Context, user User) (*Session, string, error) {
	token, tokenHash, tokenPrefix, err := s.generator.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	session := &Session{
		TokenHash:   tokenHash,
		TokenPrefix: tokenPrefix,
		UserID:      user.ID,
		User:        user,
		ExpiresAt:   time.Now().Add(s.ttl),
		CreatedAt:   time.Now(),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, "", err
	}
	return session, token, nil
}

// Resolve validates a raw credential and returns the session it backs.
// Read-only: resolution never renews the TTL; renewal is a separate,
// explicit operation outside the request pipeline.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	if err := s.generator.ValidateTokenFormat(token); err != nil {
		return nil, ErrSessionNotFound
	}

	session, err := s.store.GetByTokenHash(ctx, s.generator.HashToken(token))
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Revoke deletes the session backing a raw credential (sign-out). Unknown
// tokens are a no-op; sign-out is idempotent.
func (s *Service) Revoke(ctx context.Context, token string) error {
	session, err := s.store.GetByTokenHash(ctx, s.generator.HashToken(token))
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, session.ID)
}
