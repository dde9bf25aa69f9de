package auth

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedStore wraps a SessionStore with a bounded read-through cache keyed
// by token hash. Sessions are read on every request; the membership and the
// session row are read-mostly, so a short cache TTL bounds staleness of the
// only mutable field (ActiveWorkspaceID) without a cross-process
// invalidation protocol.
type CachedStore struct {
	SessionStore
	cache *expirable.LRU[string, *Session]
}

// NewCachedStore wraps store with an LRU of the given size and entry TTL
func NewCachedStore(store SessionStore, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		SessionStore: store,
		cache:        expirable.NewLRU[string, *Session](size, nil, ttl),
	}
}

// GetByTokenHash serves from cache when possible
func (s *CachedStore) GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error) {
	if session, ok := s.cache.Get(tokenHash); ok {
		copied := *session
		return &copied, nil
	}
	session, err := s.SessionStore.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	copied := *session
	s.cache.Add(tokenHash, &copied)
	return session, nil
}

// Delete removes a session and its cache entry
func (s *CachedStore) Delete(ctx context.Context, sessionID int64) error {
	s.evictByID(sessionID)
	return s.SessionStore.Delete(ctx, sessionID)
}

// DeleteForUser removes all of a user's sessions; the cache is purged
// wholesale since entries are keyed by hash, not user.
func (s *CachedStore) DeleteForUser(ctx context.Context, userID int64) (int64, error) {
	s.cache.Purge()
	return s.SessionStore.DeleteForUser(ctx, userID)
}

// SetActiveWorkspace writes through and drops the stale cache entry
func (s *CachedStore) SetActiveWorkspace(ctx context.Context, sessionID int64, workspaceID *int64) error {
	s.evictByID(sessionID)
	return s.SessionStore.SetActiveWorkspace(ctx, sessionID, workspaceID)
}

func (s *CachedStore) evictByID(sessionID int64) {
	for _, key := range s.cache.Keys() {
		if session, ok := s.cache.Peek(key); ok && session.ID == sessionID {
			s.cache.Remove(key)
			return
		}
	}
}
