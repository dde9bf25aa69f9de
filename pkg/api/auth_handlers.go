package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rampline/rampline/pkg/audit"
	"github.com/rampline/rampline/pkg/auth"
	"github.com/rampline/rampline/pkg/authz"
	"github.com/rampline/rampline/pkg/config"
	"github.com/rampline/rampline/pkg/httputil"
	"github.com/rampline/rampline/pkg/middleware"
	"github.com/rampline/rampline/pkg/ratelimit"
	"github.com/rampline/rampline/pkg/workspaces"
)

// AuthHandlers handles session lifecycle endpoints
type AuthHandlers struct {
	sessions     *auth.Service
	verifier     auth.CredentialVerifier
	memberships  workspaces.MembershipGetter
	limiter      *ratelimit.Limiter
	signinPolicy ratelimit.Policy
	logger       *logrus.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(sessions *auth.Service, verifier auth.CredentialVerifier, memberships workspaces.MembershipGetter, limiter *ratelimit.Limiter, cfg config.RateLimitConfig, logger *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{
		sessions:    sessions,
		verifier:    verifier,
		memberships: memberships,
		limiter:     limiter,
		// Sign-in fails closed: an unmetered credential-stuffing window is
		// worse than a brief outage of the sign-in form.
		signinPolicy: ratelimit.Policy{
			Max:      cfg.SigninMax,
			Window:   cfg.SigninWindow,
			FailMode: ratelimit.FailClosed,
		},
		logger: logger,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(r *mux.Router, pipeline *middleware.Pipeline) {
	signin := middleware.RouteConfig{
		Public: true,
		RateLimit: &middleware.RateLimitRule{
			Class:  "signin",
			Policy: h.signinPolicy,
		},
	}
	sessionOnly := middleware.RouteConfig{SkipWorkspace: true}

	// Sign-out is public so a second call with an already-revoked token
	// still answers 204 instead of bouncing off the session guard.
	r.Handle("/v1/auth/signin", pipeline.ProtectFunc(signin, h.signin)).Methods("POST")
	r.Handle("/v1/auth/signout", pipeline.ProtectFunc(middleware.RouteConfig{Public: true}, h.signout)).Methods("POST")
	r.Handle("/v1/auth/session/workspace", pipeline.ProtectFunc(sessionOnly, h.setActiveWorkspace)).Methods("PUT")
}

// SigninRequest is the sign-in request body
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SigninResponse carries the raw session credential. This is the only
// moment the token exists in plaintext on the server side.
type SigninResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
}

// signin handles POST /v1/auth/signin
func (h *AuthHandlers) signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" {
		httputil.WriteGuardError(w, authz.NewValidationError("email", "required"))
		return
	}
	if req.Password == "" {
		httputil.WriteGuardError(w, authz.NewValidationError("password", "required"))
		return
	}

	user, err := h.verifier.Verify(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		// Same answer for unknown email and wrong password
		if auditErr := audit.LogAuthentication(r.Context(), r, audit.EventTypeAuthSigninFailed, audit.EventStatusFailure, nil, req.Email, "invalid credentials"); auditErr != nil {
			h.logger.Warnf("Failed to write audit event: %v", auditErr)
		}
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}
	if err != nil {
		h.logger.Errorf("Credential verification failed: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	session, token, err := h.sessions.CreateForUser(r.Context(), *user)
	if err != nil {
		h.logger.Errorf("Failed to create session: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	// A correct password ends the abuse window early so a legitimate user
	// who fumbled a few attempts is not locked out of their next sign-in.
	key := ratelimit.Key("signin", httputil.ClientIP(r))
	if err := h.limiter.Reset(r.Context(), key); err != nil {
		h.logger.Warnf("Failed to reset sign-in limiter for %s: %v", key, err)
	}

	if err := audit.LogAuthentication(r.Context(), r, audit.EventTypeAuthSignin, audit.EventStatusSuccess, &user.ID, user.Email, "signed in"); err != nil {
		h.logger.Warnf("Failed to write audit event: %v", err)
	}

	httputil.WriteSuccess(w, SigninResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		UserID:    user.ID,
		Email:     user.Email,
	})
}

// signout handles POST /v1/auth/signout. Idempotent: a token that no
// longer resolves still gets a success answer.
func (h *AuthHandlers) signout(w http.ResponseWriter, r *http.Request) {
	token := httputil.BearerToken(r)

	// Resolve first so the audit trail names who signed out, but an
	// unresolvable token is not an error here.
	session, resolveErr := h.sessions.Resolve(r.Context(), token)

	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		h.logger.Errorf("Failed to revoke session: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	if resolveErr == nil {
		if err := audit.LogAuthentication(r.Context(), r, audit.EventTypeAuthSignout, audit.EventStatusSuccess, &session.UserID, session.User.Email, "signed out"); err != nil {
			h.logger.Warnf("Failed to write audit event: %v", err)
		}
	}
	httputil.WriteNoContent(w)
}

// ActiveWorkspaceRequest selects the session's default workspace. A null
// workspace_id clears the selection.
type ActiveWorkspaceRequest struct {
	WorkspaceID *int64 `json:"workspace_id"`
}

// setActiveWorkspace handles PUT /v1/auth/session/workspace
func (h *AuthHandlers) setActiveWorkspace(w http.ResponseWriter, r *http.Request) {
	sc := middleware.GetSessionContext(r)

	var req ActiveWorkspaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	// Selecting a workspace requires an accepted membership in it;
	// otherwise the session guard would hand every request a workspace the
	// workspace guard then rejects.
	if req.WorkspaceID != nil {
		membership, err := h.memberships.GetMembership(r.Context(), sc.UserID, *req.WorkspaceID)
		if errors.Is(err, workspaces.ErrMembershipNotFound) {
			httputil.WriteGuardError(w, authz.ErrNotAMember)
			return
		}
		if err != nil {
			h.logger.Errorf("Failed to load membership: %v", err)
			httputil.WriteInternalError(w, err)
			return
		}
		if !membership.Accepted() {
			httputil.WriteGuardError(w, authz.ErrNotAMember)
			return
		}
	}

	if err := h.sessions.Store().SetActiveWorkspace(r.Context(), sc.SessionID, req.WorkspaceID); err != nil {
		h.logger.Errorf("Failed to set active workspace for session %d: %v", sc.SessionID, err)
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
