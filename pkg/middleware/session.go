package middleware

import (
	"net/http"
	"time"

	"github.com/rampline/rampline/pkg/auth"
	"github.com/rampline/rampline/pkg/authz"
	"github.com/rampline/rampline/pkg/contextkeys"
	"github.com/rampline/rampline/pkg/httputil"
	"github.com/rampline/rampline/pkg/observability"
)

// resolveSession turns a Bearer token into a SessionContext or terminates
// with Unauthenticated. Every failure class collapses to the same answer:
// a missing header, a malformed token, an unknown token, and an expired
// session are indistinguishable to the caller.
func (p *Pipeline) resolveSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		token := httputil.BearerToken(r)
		session, err := p.Sessions.Resolve(r.Context(), token)
		if err != nil {
			p.observe("session", start)
			p.deny(w, r, "session", authz.ErrUnauthenticated)
			return
		}

		sc := &auth.SessionContext{
			UserID:            session.UserID,
			UserEmail:         session.User.Email,
			SessionID:         session.ID,
			ActiveWorkspaceID: session.ActiveWorkspaceID,
		}

		ctx := contextkeys.WithSession(r.Context(), sc)
		ctx = observability.WithUserID(ctx, sc.UserID)

		p.observe("session", start)
		p.allow("session")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionContext extracts the resolved session from a request. Nil when
// the session guard has not run.
func GetSessionContext(r *http.Request) *auth.SessionContext {
	sc, _ := r.Context().Value(contextkeys.SessionKey).(*auth.SessionContext)
	return sc
}
