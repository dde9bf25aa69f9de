package workspaces

import (
	"context"
	"database/sql"
	"time"

	"github.com/rampline/rampline/pkg/authz"
)

// MembershipGetter is the narrow read interface the workspace guard binds
// against. Guards never see the full management surface.
type MembershipGetter interface {
	GetMembership(ctx context.Context, userID, workspaceID int64) (*Membership, error)
}

// Service defines workspace and membership management
type Service interface {
	MembershipGetter

	// Workspace lifecycle
	CreateWorkspace(ctx context.Context, name, slug string, ownerID int64) (*Workspace, error)
	GetWorkspace(ctx context.Context, id int64) (*Workspace, error)

	// TransferOwnership moves the owner role to an accepted member and
	// demotes the previous owner to admin. This is the only path that
	// assigns owner after workspace creation.
	TransferOwnership(ctx context.Context, workspaceID, newOwnerID int64) error

	// Member management
	ListMembers(ctx context.Context, workspaceID int64) ([]*Member, error)
	InviteMember(ctx context.Context, workspaceID, userID int64, role authz.Role, invitedBy int64) error
	AcceptInvitation(ctx context.Context, workspaceID, userID int64) error
	UpdateMemberRole(ctx context.Context, workspaceID, userID int64, role authz.Role) error
	RemoveMember(ctx context.Context, workspaceID, userID int64) error

	// CleanupExpiredInvitations removes pending memberships older than maxAge
	CleanupExpiredInvitations(ctx context.Context, maxAge time.Duration) (int64, error)
}

// PostgresService implements Service over database/sql
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a Postgres-backed workspace service
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}
