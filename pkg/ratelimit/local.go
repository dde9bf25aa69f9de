package ratelimit

import (
	"context"
	"sync"
	"time"
)

// LocalStore implements Store as a mutex-guarded in-process map. It loses
// cross-instance correctness, so it is only the fallback backend for store
// outages and the primary for single-instance deployments. It is created
// explicitly at process start and swept by TTL, never a package global.
type LocalStore struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

type localEntry struct {
	count   int64
	resetAt time.Time
}

// NewLocalStore creates an empty in-process rate limit store
func NewLocalStore() *LocalStore {
	return &LocalStore{entries: make(map[string]*localEntry)}
}

// Incr adds one attempt under key. The whole check-and-increment happens
// under the lock, so concurrent workers cannot both observe "under limit".
func (s *LocalStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		s.entries[key] = &localEntry{count: 1, resetAt: now.Add(window)}
		return 1, window, nil
	}

	entry.count++
	return entry.count, entry.resetAt.Sub(now), nil
}

// Reset clears the window for key
func (s *LocalStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep removes expired entries; called periodically by StartSweeper
func (s *LocalStore) Sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if !now.Before(entry.resetAt) {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of live entries (expired or not)
func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StartSweeper starts a background goroutine that evicts expired entries
// until ctx is cancelled
func (s *LocalStore) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}
