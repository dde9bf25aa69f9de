package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T, ttl time.Duration) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewService(store, ttl), store
}

func TestService_CreateAndResolve(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	user := User{ID: 42, Email: "casey@example.com", Verified: true}
	session, token, err := svc.CreateForUser(ctx, user)
	if err != nil {
		t.Fatalf("CreateForUser failed: %v", err)
	}
	if session.ID == 0 {
		t.Error("session ID not assigned")
	}

	resolved, err := svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.UserID != 42 || resolved.User.Email != "casey@example.com" {
		t.Errorf("resolved wrong session: %+v", resolved)
	}
	if !resolved.User.Verified {
		t.Error("verified flag lost")
	}
}

func TestService_Resolve_UnknownToken(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)

	_, err := svc.Resolve(context.Background(), "rmp_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestService_Resolve_EmptyAndMalformed(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)

	for _, tok := range []string{"", "not-a-token", "rmp_"} {
		if _, err := svc.Resolve(context.Background(), tok); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Resolve(%q) err = %v, want ErrSessionNotFound", tok, err)
		}
	}
}

func TestService_Resolve_Expired(t *testing.T) {
	svc, _ := newTestService(t, -time.Minute) // already expired at creation
	ctx := context.Background()

	_, token, err := svc.CreateForUser(ctx, User{ID: 1, Email: "a@b.c"})
	if err != nil {
		t.Fatalf("CreateForUser failed: %v", err)
	}

	if _, err := svc.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired session resolved: err = %v", err)
	}
}

func TestService_Revoke(t *testing.T) {
	svc, _ := newTestService(t, time.Hour)
	ctx := context.Background()

	_, token, err := svc.CreateForUser(ctx, User{ID: 7, Email: "x@y.z"})
	if err != nil {
		t.Fatalf("CreateForUser failed: %v", err)
	}

	if err := svc.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := svc.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		t.Error("revoked session still resolves")
	}

	// Revoking again is a no-op
	if err := svc.Revoke(ctx, token); err != nil {
		t.Errorf("second Revoke failed: %v", err)
	}
}

func TestMemoryStore_DeleteForUser(t *testing.T) {
	svc, store := newTestService(t, time.Hour)
	ctx := context.Background()

	_, tok1, _ := svc.CreateForUser(ctx, User{ID: 5, Email: "u5@x.y"})
	_, tok2, _ := svc.CreateForUser(ctx, User{ID: 5, Email: "u5@x.y"})
	_, tok3, _ := svc.CreateForUser(ctx, User{ID: 6, Email: "u6@x.y"})

	count, err := store.DeleteForUser(ctx, 5)
	if err != nil {
		t.Fatalf("DeleteForUser failed: %v", err)
	}
	if count != 2 {
		t.Errorf("deleted %d sessions, want 2", count)
	}

	for _, tok := range []string{tok1, tok2} {
		if _, err := svc.Resolve(ctx, tok); !errors.Is(err, ErrSessionNotFound) {
			t.Error("user 5 session survived DeleteForUser")
		}
	}
	if _, err := svc.Resolve(ctx, tok3); err != nil {
		t.Error("user 6 session should survive")
	}
}

func TestMemoryStore_SetActiveWorkspace(t *testing.T) {
	svc, store := newTestService(t, time.Hour)
	ctx := context.Background()

	session, token, _ := svc.CreateForUser(ctx, User{ID: 9, Email: "w@x.y"})

	workspaceID := int64(31)
	if err := store.SetActiveWorkspace(ctx, session.ID, &workspaceID); err != nil {
		t.Fatalf("SetActiveWorkspace failed: %v", err)
	}

	resolved, err := svc.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.ActiveWorkspaceID == nil || *resolved.ActiveWorkspaceID != 31 {
		t.Errorf("ActiveWorkspaceID = %v, want 31", resolved.ActiveWorkspaceID)
	}

	if err := store.SetActiveWorkspace(ctx, session.ID, nil); err != nil {
		t.Fatalf("clearing active workspace failed: %v", err)
	}
	resolved, _ = svc.Resolve(ctx, token)
	if resolved.ActiveWorkspaceID != nil {
		t.Error("ActiveWorkspaceID not cleared")
	}

	if err := store.SetActiveWorkspace(ctx, 9999, &workspaceID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("unknown session err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	live := &Session{TokenHash: "h1", UserID: 1, ExpiresAt: now.Add(time.Hour)}
	dead := &Session{TokenHash: "h2", UserID: 1, ExpiresAt: now.Add(-time.Hour)}
	store.Create(ctx, live)
	store.Create(ctx, dead)

	count, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if count != 1 {
		t.Errorf("deleted %d, want 1", count)
	}
	if _, err := store.GetByTokenHash(ctx, "h1"); err != nil {
		t.Error("live session removed")
	}
	if _, err := store.GetByTokenHash(ctx, "h2"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expired session survived")
	}
}
