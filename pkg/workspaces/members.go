package workspaces

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rampline/rampline/pkg/authz"
)

// CreateWorkspace inserts the workspace and its owner membership in one
// transaction. The owner row is accepted immediately; owner is the only
// role ever created outside the invite path.
func (s *PostgresService) CreateWorkspace(ctx context.Context, name, slug string, ownerID int64) (*Workspace, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	ws := &Workspace{Name: name, Slug: slug, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO workspaces (name, slug, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, name, slug, ownerID, now).Scan(&ws.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role, accepted_at, created_at)
		VALUES ($1, $2, $3, $4, $4)
	`, ws.ID, ownerID, authz.RoleOwner, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit workspace creation: %w", err)
	}
	return ws, nil
}

// GetWorkspace retrieves a workspace by ID
func (s *PostgresService) GetWorkspace(ctx context.Context, id int64) (*Workspace, error) {
	ws := &Workspace{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, slug, owner_id, created_at, updated_at
		FROM workspaces WHERE id = $1
	`, id).Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return ws, nil
}

// GetMembership retrieves the membership row for (userID, workspaceID).
// Returns ErrMembershipNotFound when no row exists; pending invites are
// returned as-is and it is the guard's job to treat them as non-members.
func (s *PostgresService) GetMembership(ctx context.Context, userID, workspaceID int64) (*Membership, error) {
	query := `
		SELECT id, workspace_id, user_id, role, module_permissions, accepted_at, invited_by, created_at
		FROM workspace_members
		WHERE user_id = $1 AND workspace_id = $2
	`
	m := &Membership{}
	var perms []byte
	var acceptedAt sql.NullTime
	var invitedBy sql.NullInt64

	err := s.db.QueryRowContext(ctx, query, userID, workspaceID).Scan(
		&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &perms, &acceptedAt, &invitedBy, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &m.ModulePermissions); err != nil {
			return nil, fmt.Errorf("failed to decode module permissions: %w", err)
		}
	}
	if acceptedAt.Valid {
		m.AcceptedAt = &acceptedAt.Time
	}
	if invitedBy.Valid {
		m.InvitedBy = &invitedBy.Int64
	}
	return m, nil
}

// ListMembers retrieves all members of a workspace, pending invites included
func (s *PostgresService) ListMembers(ctx context.Context, workspaceID int64) ([]*Member, error) {
	query := `
		SELECT m.id, m.workspace_id, m.user_id, m.role, m.module_permissions,
		       m.accepted_at, m.invited_by, m.created_at, u.email
		FROM workspace_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member := &Member{}
		var perms []byte
		var acceptedAt sql.NullTime
		var invitedBy sql.NullInt64
		if err := rows.Scan(
			&member.ID, &member.WorkspaceID, &member.UserID, &member.Role, &perms,
			&acceptedAt, &invitedBy, &member.CreatedAt, &member.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if len(perms) > 0 {
			if err := json.Unmarshal(perms, &member.ModulePermissions); err != nil {
				return nil, fmt.Errorf("failed to decode module permissions: %w", err)
			}
		}
		if acceptedAt.Valid {
			member.AcceptedAt = &acceptedAt.Time
		}
		if invitedBy.Valid {
			member.InvitedBy = &invitedBy.Int64
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// InviteMember creates a pending membership row (AcceptedAt null). Owner is
// never assignable through this path.
func (s *PostgresService) InviteMember(ctx context.Context, workspaceID, userID int64, role authz.Role, invitedBy int64) error {
	if !authz.AssignableRole(role) {
		return authz.NewValidationError("role", "role is not assignable")
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM workspace_members WHERE workspace_id = $1 AND user_id = $2)
	`, workspaceID, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existing membership: %w", err)
	}
	if exists {
		return ErrMemberExists
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role, invited_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, workspaceID, userID, role, invitedBy, time.Now())
	if err != nil {
		return fmt.Errorf("failed to invite member: %w", err)
	}
	return nil
}

// AcceptInvitation marks a pending membership as accepted
func (s *PostgresService) AcceptInvitation(ctx context.Context, workspaceID, userID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE workspace_members SET accepted_at = $1
		WHERE workspace_id = $2 AND user_id = $3 AND accepted_at IS NULL
	`, time.Now(), workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// UpdateMemberRole changes a member's role. The owner row is immutable here
// and owner cannot be granted; ownership transfer is a separate operation.
func (s *PostgresService) UpdateMemberRole(ctx context.Context, workspaceID, userID int64, role authz.Role) error {
	if !authz.AssignableRole(role) {
		return authz.NewValidationError("role", "role is not assignable")
	}

	current, err := s.GetMembership(ctx, userID, workspaceID)
	if err != nil {
		return err
	}
	if current.Role == authz.RoleOwner {
		return ErrOwnerImmutable
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND user_id = $3
	`, role, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership. The owner row cannot be removed.
func (s *PostgresService) RemoveMember(ctx context.Context, workspaceID, userID int64) error {
	current, err := s.GetMembership(ctx, userID, workspaceID)
	if err != nil {
		return err
	}
	if current.Role == authz.RoleOwner {
		return ErrOwnerImmutable
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// TransferOwnership reassigns the owner role in one transaction: the
// target's row becomes owner, the previous owner's row becomes admin, and
// the workspace record follows. The target must already be an accepted
// member; a pending invite cannot receive ownership.
func (s *PostgresService) TransferOwnership(ctx context.Context, workspaceID, newOwnerID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentOwnerID int64
	err = tx.QueryRowContext(ctx, `
		SELECT owner_id FROM workspaces WHERE id = $1 FOR UPDATE
	`, workspaceID).Scan(&currentOwnerID)
	if err == sql.ErrNoRows {
		return ErrWorkspaceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if currentOwnerID == newOwnerID {
		return authz.NewValidationError("user_id", "already the workspace owner")
	}

	var accepted bool
	err = tx.QueryRowContext(ctx, `
		SELECT accepted_at IS NOT NULL FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, newOwnerID).Scan(&accepted)
	if err == sql.ErrNoRows || (err == nil && !accepted) {
		return ErrMembershipNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check target membership: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND user_id = $3
	`, authz.RoleAdmin, workspaceID, currentOwnerID)
	if err != nil {
		return fmt.Errorf("failed to demote previous owner: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND user_id = $3
	`, authz.RoleOwner, workspaceID, newOwnerID)
	if err != nil {
		return fmt.Errorf("failed to promote new owner: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE workspaces SET owner_id = $1, updated_at = $2 WHERE id = $3
	`, newOwnerID, time.Now(), workspaceID)
	if err != nil {
		return fmt.Errorf("failed to update workspace owner: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ownership transfer: %w", err)
	}
	return nil
}

// CleanupExpiredInvitations removes pending memberships older than maxAge
func (s *PostgresService) CleanupExpiredInvitations(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM workspace_members WHERE accepted_at IS NULL AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired invitations: %w", err)
	}
	return result.RowsAffected()
}
