package integrations

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-node development
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[int64]*Integration
	nextID int64
}

// NewMemoryStore creates an empty in-memory integration store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]*Integration)}
}

func (s *MemoryStore) Create(ctx context.Context, integration *Integration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	integration.ID = s.nextID
	now := time.Now()
	integration.CreatedAt = now
	integration.UpdatedAt = now

	copied := *integration
	s.byID[copied.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, workspaceID, id int64) (*Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	integration, ok := s.byID[id]
	if !ok || integration.WorkspaceID != workspaceID {
		return nil, ErrIntegrationNotFound
	}
	copied := *integration
	return &copied, nil
}

func (s *MemoryStore) List(ctx context.Context, workspaceID int64) ([]*Integration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Integration
	for _, integration := range s.byID {
		if integration.WorkspaceID == workspaceID {
			copied := *integration
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, integration *Integration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[integration.ID]
	if !ok || existing.WorkspaceID != integration.WorkspaceID {
		return ErrIntegrationNotFound
	}

	copied := *integration
	copied.CreatedAt = existing.CreatedAt
	copied.UpdatedAt = time.Now()
	s.byID[copied.ID] = &copied
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, workspaceID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok || existing.WorkspaceID != workspaceID {
		return ErrIntegrationNotFound
	}
	delete(s.byID, id)
	return nil
}
