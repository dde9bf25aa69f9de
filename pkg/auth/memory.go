package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory SessionStore for tests and single-node
// development. Not suitable behind a load balancer.
type MemoryStore struct {
	mu       sync.RWMutex
	byHash   map[string]*Session
	nextID   int64
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byHash: make(map[string]*Session)}
}

// Create persists a new session and assigns its ID
func (s *MemoryStore) Create(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	session.ID = s.nextID
	copied := *session
	s.byHash[session.TokenHash] = &copied
	return nil
}

// GetByTokenHash looks up a session by token hash
func (s *MemoryStore) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byHash[tokenHash]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

// Delete removes a single session
func (s *MemoryStore) Delete(ctx context.Context, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, session := range s.byHash {
		if session.ID == sessionID {
			delete(s.byHash, hash)
			return nil
		}
	}
	return nil
}

// DeleteForUser removes all sessions for a user
func (s *MemoryStore) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for hash, session := range s.byHash {
		if session.UserID == userID {
			delete(s.byHash, hash)
			count++
		}
	}
	return count, nil
}

// SetActiveWorkspace updates the session's sticky workspace
func (s *MemoryStore) SetActiveWorkspace(ctx context.Context, sessionID int64, workspaceID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.byHash {
		if session.ID == sessionID {
			if workspaceID != nil {
				id := *workspaceID
				session.ActiveWorkspaceID = &id
			} else {
				session.ActiveWorkspaceID = nil
			}
			return nil
		}
	}
	return ErrSessionNotFound
}

// DeleteExpired removes sessions past their expiry
func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for hash, session := range s.byHash {
		if session.Expired(now) {
			delete(s.byHash, hash)
			count++
		}
	}
	return count, nil
}
