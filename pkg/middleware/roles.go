package middleware

import (
	"net/http"
	"time"

	"github.com/rampline/rampline/pkg/audit"
	"github.com/rampline/rampline/pkg/authz"
)

// requireRoles enforces the route's allowed role set. The check is set
// membership: a route allowing {owner, admin} denies a member even though
// member outranks viewer. Missing session or membership bindings are a
// wiring bug upstream and surface as an internal error, never an allow.
func (p *Pipeline) requireRoles(allowed authz.RoleSet, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		sc := GetSessionContext(r)
		membership := GetMembership(r)
		if sc == nil || membership == nil {
			p.observe("roles", start)
			p.deny(w, r, "roles", authz.ErrContextNotBound)
			return
		}

		if !authz.Evaluate(membership.Role, allowed) {
			audit.LogDenied(r.Context(), r, &sc.UserID, string(membership.Role), authz.ErrInsufficientPermissions.Error())
			p.observe("roles", start)
			p.deny(w, r, "roles", authz.ErrInsufficientPermissions)
			return
		}

		p.observe("roles", start)
		p.allow("roles")
		next.ServeHTTP(w, r)
	})
}
