package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

// brokenStore simulates a rate-limit backend outage
type brokenStore struct{}

func (brokenStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store unreachable")
}

func (brokenStore) Reset(ctx context.Context, key string) error {
	return errors.New("store unreachable")
}

func TestSignin(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", SigninRequest{Email: "u3@example.com", Password: testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp SigninResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" || resp.UserID != 3 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Errorf("ExpiresAt %v not in the future", resp.ExpiresAt)
	}

	// The minted token works against a protected route
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/v1/workspaces/%d/members", f.wsID), resp.Token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("minted token rejected: %d", rec.Code)
	}
}

func TestSigninInvalidCredentials(t *testing.T) {
	f := newAPIFixture(t)

	// Unknown account and wrong password are the same answer
	for _, req := range []SigninRequest{
		{Email: "nobody@example.com", Password: testPassword},
		{Email: "u3@example.com", Password: "wrong"},
	} {
		rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("signin(%s) = %d, want 401", req.Email, rec.Code)
		}
	}

	rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", SigninRequest{Password: testPassword})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing email = %d, want 400", rec.Code)
	}
}

func TestSigninRateLimit(t *testing.T) {
	f := newAPIFixture(t)
	bad := SigninRequest{Email: "u3@example.com", Password: "wrong"}

	for i := 0; i < 5; i++ {
		if rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", bad); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i+1, rec.Code)
		}
	}

	rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", bad)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("attempt 6 = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After header")
	}
}

func TestSigninSuccessResetsWindow(t *testing.T) {
	f := newAPIFixture(t)
	bad := SigninRequest{Email: "u3@example.com", Password: "wrong"}
	good := SigninRequest{Email: "u3@example.com", Password: testPassword}

	for i := 0; i < 4; i++ {
		if rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", bad); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d = %d, want 401", i+1, rec.Code)
		}
	}
	if rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", good); rec.Code != http.StatusOK {
		t.Fatalf("good attempt = %d, want 200", rec.Code)
	}

	// Without the success reset this would be the sixth attempt in the
	// window and answer 429
	if rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", bad); rec.Code != http.StatusUnauthorized {
		t.Errorf("post-reset attempt = %d, want 401", rec.Code)
	}
}

func TestSigninFailsClosedOnStoreOutage(t *testing.T) {
	f := newAPIFixtureWithStore(t, brokenStore{})

	rec := f.do(t, http.MethodPost, "/v1/auth/signin", "", SigninRequest{Email: "u3@example.com", Password: testPassword})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("signin during outage = %d, want 500", rec.Code)
	}
}

func TestSignoutIdempotent(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokens[3]

	if rec := f.do(t, http.MethodPost, "/v1/auth/signout", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("first signout = %d, want 204", rec.Code)
	}

	// Revoked token no longer reaches protected routes
	if rec := f.do(t, http.MethodGet, fmt.Sprintf("/v1/workspaces/%d/members", f.wsID), token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token = %d, want 401", rec.Code)
	}

	// Signing out again with the dead token is still a success
	if rec := f.do(t, http.MethodPost, "/v1/auth/signout", token, nil); rec.Code != http.StatusNoContent {
		t.Errorf("second signout = %d, want 204", rec.Code)
	}
}

func TestSetActiveWorkspace(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, "/v1/auth/session/workspace", f.tokens[3], ActiveWorkspaceRequest{WorkspaceID: &f.wsID})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set active = %d, want 204: %s", rec.Code, rec.Body.String())
	}

	// With the sticky workspace set, a workspace route without an explicit
	// id resolves through the session fallback. The members route carries
	// the id in its path, so probe the fallback directly via a session
	// resolve.
	sess, err := f.sessions.Resolve(context.Background(), f.tokens[3])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sess.ActiveWorkspaceID == nil || *sess.ActiveWorkspaceID != f.wsID {
		t.Errorf("ActiveWorkspaceID = %v, want %d", sess.ActiveWorkspaceID, f.wsID)
	}

	// Clearing with null
	if rec := f.do(t, http.MethodPut, "/v1/auth/session/workspace", f.tokens[3], ActiveWorkspaceRequest{}); rec.Code != http.StatusNoContent {
		t.Fatalf("clear active = %d, want 204", rec.Code)
	}
	sess, err = f.sessions.Resolve(context.Background(), f.tokens[3])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sess.ActiveWorkspaceID != nil {
		t.Errorf("ActiveWorkspaceID = %v after clear, want nil", *sess.ActiveWorkspaceID)
	}
}

func TestSetActiveWorkspaceRequiresMembership(t *testing.T) {
	f := newAPIFixture(t)

	// Outsider
	rec := f.do(t, http.MethodPut, "/v1/auth/session/workspace", f.tokens[6], ActiveWorkspaceRequest{WorkspaceID: &f.wsID})
	if rec.Code != http.StatusForbidden {
		t.Errorf("outsider = %d, want 403", rec.Code)
	}

	// Pending invitee is still a non-member
	rec = f.do(t, http.MethodPut, "/v1/auth/session/workspace", f.tokens[5], ActiveWorkspaceRequest{WorkspaceID: &f.wsID})
	if rec.Code != http.StatusForbidden {
		t.Errorf("pending invitee = %d, want 403", rec.Code)
	}
}
