package authz

// Role represents a workspace-level role
type Role string

const (
	RoleOwner  Role = "owner"  // Full control, including ownership transfer
	RoleAdmin  Role = "admin"  // Manage members, integrations, escalation config
	RoleMember Role = "member" // Day-to-day work inside the workspace
	RoleViewer Role = "viewer" // Read-only access
	RoleGuest  Role = "guest"  // Limited, externally invited access
)

// roleRank captures the fixed hierarchy owner > admin > member > viewer > guest.
// It exists for display ordering and assignment validation only; authorization
// decisions are set-membership checks, never rank comparisons, because some
// endpoints intentionally skip intermediate roles.
var roleRank = map[Role]int{
	RoleOwner:  5,
	RoleAdmin:  4,
	RoleMember: 3,
	RoleViewer: 2,
	RoleGuest:  1,
}

// ValidRole reports whether r is one of the closed set of workspace roles.
func ValidRole(r Role) bool {
	_, ok := roleRank[r]
	return ok
}

// Outranks reports whether a sits strictly above b in the role hierarchy.
// Used for assignment rules (who may change whose role), not for route checks.
func (r Role) Outranks(other Role) bool {
	return roleRank[r] > roleRank[other]
}

// AtLeast reports whether r sits at or above other in the hierarchy.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// AssignableRole reports whether r may be granted through the invite or
// role-update path. Owner is excluded: it exists only via workspace creation
// or an explicit ownership transfer.
func AssignableRole(r Role) bool {
	return ValidRole(r) && r != RoleOwner
}

// RoleSet is the explicit allowed-role set a route declares. An empty set
// denies everyone; there is no implicit "authenticated is enough" state.
type RoleSet []Role

// NewRoleSet builds a route's allowed set. Duplicates and unknown roles are
// dropped. If the set admits admin it always admits owner as well; an
// endpoint reachable by admin must be reachable by owner, and this is
// enforced here at declaration time rather than special-cased in Evaluate.
func NewRoleSet(roles ...Role) RoleSet {
	seen := make(map[Role]bool, len(roles))
	set := make(RoleSet, 0, len(roles))
	for _, r := range roles {
		if !ValidRole(r) || seen[r] {
			continue
		}
		seen[r] = true
		set = append(set, r)
	}
	if seen[RoleAdmin] && !seen[RoleOwner] {
		set = append(set, RoleOwner)
	}
	return set
}

// Contains reports whether role is a member of the set.
func (s RoleSet) Contains(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Evaluate makes the pure allow/deny decision for a bound membership role
// against a route's declared set. No I/O, no defaults: an empty or
// undeclared set denies. Fail-closed is the governing rule for the whole
// pipeline; an unconfigured route must never be silently open.
func Evaluate(role Role, allowed RoleSet) bool {
	if len(allowed) == 0 {
		return false
	}
	return allowed.Contains(role)
}
