package workspaces

import (
	"context"
	"sync"
	"time"

	"github.com/rampline/rampline/pkg/authz"
)

// MemoryService is an in-memory Service for tests and single-node
// development.
type MemoryService struct {
	mu          sync.RWMutex
	workspaces  map[int64]*Workspace
	memberships map[int64]map[int64]*Membership // workspaceID -> userID -> membership
	emails      map[int64]string                // userID -> email, for ListMembers
	nextID      int64
}

// NewMemoryService creates an empty in-memory workspace service
func NewMemoryService() *MemoryService {
	return &MemoryService{
		workspaces:  make(map[int64]*Workspace),
		memberships: make(map[int64]map[int64]*Membership),
		emails:      make(map[int64]string),
	}
}

// SetUserEmail registers a display email for ListMembers output
func (s *MemoryService) SetUserEmail(userID int64, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails[userID] = email
}

// CreateWorkspace inserts the workspace and its accepted owner membership
func (s *MemoryService) CreateWorkspace(ctx context.Context, name, slug string, ownerID int64) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now()
	ws := &Workspace{ID: s.nextID, Name: name, Slug: slug, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	s.workspaces[ws.ID] = ws

	s.nextID++
	accepted := now
	s.memberships[ws.ID] = map[int64]*Membership{
		ownerID: {
			ID:          s.nextID,
			WorkspaceID: ws.ID,
			UserID:      ownerID,
			Role:        authz.RoleOwner,
			AcceptedAt:  &accepted,
			CreatedAt:   now,
		},
	}
	return ws, nil
}

// GetWorkspace retrieves a workspace by ID
func (s *MemoryService) GetWorkspace(ctx context.Context, id int64) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.workspaces[id]
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	copied := *ws
	return &copied, nil
}

// GetMembership retrieves the membership row for (userID, workspaceID)
func (s *MemoryService) GetMembership(ctx context.Context, userID, workspaceID int64) (*Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[workspaceID][userID]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	copied := *m
	return &copied, nil
}

// ListMembers retrieves all members of a workspace
func (s *MemoryService) ListMembers(ctx context.Context, workspaceID int64) ([]*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var members []*Member
	for _, m := range s.memberships[workspaceID] {
		copied := *m
		members = append(members, &Member{Membership: copied, Email: s.emails[m.UserID]})
	}
	return members, nil
}

// InviteMember creates a pending membership row
func (s *MemoryService) InviteMember(ctx context.Context, workspaceID, userID int64, role authz.Role, invitedBy int64) error {
	if !authz.AssignableRole(role) {
		return authz.NewValidationError("role", "role is not assignable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memberships[workspaceID][userID]; ok {
		return ErrMemberExists
	}
	if s.memberships[workspaceID] == nil {
		s.memberships[workspaceID] = make(map[int64]*Membership)
	}
	s.nextID++
	s.memberships[workspaceID][userID] = &Membership{
		ID:          s.nextID,
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		InvitedBy:   &invitedBy,
		CreatedAt:   time.Now(),
	}
	return nil
}

// AcceptInvitation marks a pending membership as accepted
func (s *MemoryService) AcceptInvitation(ctx context.Context, workspaceID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[workspaceID][userID]
	if !ok || m.AcceptedAt != nil {
		return ErrMembershipNotFound
	}
	now := time.Now()
	m.AcceptedAt = &now
	return nil
}

// UpdateMemberRole changes a member's role
func (s *MemoryService) UpdateMemberRole(ctx context.Context, workspaceID, userID int64, role authz.Role) error {
	if !authz.AssignableRole(role) {
		return authz.NewValidationError("role", "role is not assignable")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[workspaceID][userID]
	if !ok {
		return ErrMembershipNotFound
	}
	if m.Role == authz.RoleOwner {
		return ErrOwnerImmutable
	}
	m.Role = role
	return nil
}

// RemoveMember deletes a membership
func (s *MemoryService) RemoveMember(ctx context.Context, workspaceID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[workspaceID][userID]
	if !ok {
		return ErrMembershipNotFound
	}
	if m.Role == authz.RoleOwner {
		return ErrOwnerImmutable
	}
	delete(s.memberships[workspaceID], userID)
	return nil
}

// TransferOwnership reassigns the owner role to an accepted member and
// demotes the previous owner to admin
func (s *MemoryService) TransferOwnership(ctx context.Context, workspaceID, newOwnerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.workspaces[workspaceID]
	if !ok {
		return ErrWorkspaceNotFound
	}
	if ws.OwnerID == newOwnerID {
		return authz.NewValidationError("user_id", "already the workspace owner")
	}

	target, ok := s.memberships[workspaceID][newOwnerID]
	if !ok || target.AcceptedAt == nil {
		return ErrMembershipNotFound
	}

	if previous, ok := s.memberships[workspaceID][ws.OwnerID]; ok {
		previous.Role = authz.RoleAdmin
	}
	target.Role = authz.RoleOwner
	ws.OwnerID = newOwnerID
	ws.UpdatedAt = time.Now()
	return nil
}

// CleanupExpiredInvitations removes pending memberships older than maxAge
func (s *MemoryService) CleanupExpiredInvitations(ctx context.Context, maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	var count int64
	for _, byUser := range s.memberships {
		for userID, m := range byUser {
			if m.AcceptedAt == nil && m.CreatedAt.Before(cutoff) {
				delete(byUser, userID)
				count++
			}
		}
	}
	return count, nil
}
