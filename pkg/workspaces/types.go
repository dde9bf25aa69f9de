package workspaces

import (
	"errors"
	"time"

	"github.com/rampline/rampline/pkg/authz"
)

// Workspace is the tenant boundary; every protected resource belongs to
// exactly one workspace.
type Workspace struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership binds a user to a workspace with a role and optional
// per-module permission overrides. AcceptedAt is nil while the invite is
// pending; a pending membership is a non-member for authorization purposes.
type Membership struct {
	ID                int64          `json:"id"`
	WorkspaceID       int64          `json:"workspace_id"`
	UserID            int64          `json:"user_id"`
	Role              authz.Role     `json:"role"`
	ModulePermissions map[string]int `json:"module_permissions,omitempty"`
	AcceptedAt        *time.Time     `json:"accepted_at,omitempty"`
	InvitedBy         *int64         `json:"invited_by,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Accepted reports whether the membership grants access (invite accepted)
func (m *Membership) Accepted() bool {
	return m.AcceptedAt != nil
}

// Member is a membership joined with its user's display fields
type Member struct {
	Membership
	Email string `json:"email"`
}

// InviteMemberRequest represents a request to invite a member
type InviteMemberRequest struct {
	UserID int64      `json:"user_id"`
	Role   authz.Role `json:"role"`
}

// UpdateMemberRequest represents a request to update a member's role
type UpdateMemberRequest struct {
	Role authz.Role `json:"role"`
}

var (
	// ErrMembershipNotFound means no membership row exists for the pair.
	// The workspace guard translates it into NotAMember.
	ErrMembershipNotFound = errors.New("membership not found")

	// ErrWorkspaceNotFound means the workspace itself does not exist
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrMemberExists means an invite or add collided with an existing row
	ErrMemberExists = errors.New("user is already a member")

	// ErrOwnerImmutable guards the owner row against role updates and
	// removal through the ordinary member-management path
	ErrOwnerImmutable = errors.New("workspace owner cannot be modified via member management")
)

// ValidateModulePermissions checks the opaque per-module override map at the
// boundary, so downstream evaluation only ever sees validated shapes. Values
// share the integration bitmask range (0-7).
func ValidateModulePermissions(perms map[string]int) error {
	for module, level := range perms {
		if module == "" {
			return authz.NewValidationError("module_permissions", "empty module name")
		}
		if level < 0 || level > 7 {
			return authz.NewValidationError("module_permissions", "level out of range for "+module)
		}
	}
	return nil
}
