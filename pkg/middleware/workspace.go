package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rampline/rampline/pkg/authz"
	"github.com/rampline/rampline/pkg/contextkeys"
	"github.com/rampline/rampline/pkg/observability"
	"github.com/rampline/rampline/pkg/workspaces"
)

// bindWorkspace resolves the tenant for the request and attaches the
// caller's membership. The workspace id comes from the mux path var first,
// then the query string, then the session's active workspace. A user with
// no membership row and a user with a pending invitation get the same
// NotAMember answer; tenants are never confirmed to outsiders.
func (p *Pipeline) bindWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sc := GetSessionContext(r)
		if sc == nil {
			p.observe("workspace", start)
			p.deny(w, r, "workspace", authz.ErrContextNotBound)
			return
		}

		workspaceID, err := workspaceIDFromRequest(r, sc.ActiveWorkspaceID)
		if err != nil {
			p.observe("workspace", start)
			p.deny(w, r, "workspace", err)
			return
		}

		membership, err := p.Memberships.GetMembership(r.Context(), sc.UserID, workspaceID)
		if errors.Is(err, workspaces.ErrMembershipNotFound) {
			p.observe("workspace", start)
			p.deny(w, r, "workspace", authz.ErrNotAMember)
			return
		}
		if err != nil {
			p.observe("workspace", start)
			p.deny(w, r, "workspace", err)
			return
		}
		if !membership.Accepted() {
			// Pending invite: the row exists but grants nothing yet
			p.observe("workspace", start)
			p.deny(w, r, "workspace", authz.ErrNotAMember)
			return
		}

		ctx := contextkeys.WithMembership(r.Context(), membership)
		ctx = contextkeys.WithWorkspaceID(ctx, workspaceID)
		ctx = observability.WithWorkspaceID(ctx, workspaceID)

		p.observe("workspace", start)
		p.allow("workspace")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// workspaceIDFromRequest resolves the tenant id: path var, query param,
// session active workspace, in that order.
func workspaceIDFromRequest(r *http.Request, active *int64) (int64, error) {
	if raw, ok := mux.Vars(r)["workspace_id"]; ok {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, authz.NewValidationError("workspace_id", "must be a positive integer")
		}
		return id, nil
	}

	if raw := r.URL.Query().Get("workspace_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, authz.NewValidationError("workspace_id", "must be a positive integer")
		}
		return id, nil
	}

	if active != nil && *active > 0 {
		return *active, nil
	}

	return 0, authz.NewValidationError("workspace_id", "required")
}

// GetMembership extracts the bound membership from a request. Nil when the
// workspace guard has not run.
func GetMembership(r *http.Request) *workspaces.Membership {
	m, _ := r.Context().Value(contextkeys.MembershipKey).(*workspaces.Membership)
	return m
}
