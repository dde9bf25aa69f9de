package maintenance

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rampline/rampline/pkg/auth"
	"github.com/rampline/rampline/pkg/config"
	"github.com/rampline/rampline/pkg/observability"
	"github.com/rampline/rampline/pkg/ratelimit"
	"github.com/rampline/rampline/pkg/workspaces"
)

func testConfig() config.MaintenanceConfig {
	return config.MaintenanceConfig{
		Enabled:                true,
		SessionCleanupSchedule: "@every 1h",
		InviteCleanupSchedule:  "@daily",
		InviteMaxAge:           14 * 24 * time.Hour,
	}
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestRunSessionCleanup(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryStore()

	// One live, one expired
	live := &auth.Session{TokenHash: "live", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}
	dead := &auth.Session{TokenHash: "dead", UserID: 2, ExpiresAt: time.Now().Add(-time.Hour)}
	for _, sess := range []*auth.Session{live, dead} {
		if err := store.Create(ctx, sess); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	s := NewScheduler(testConfig(), store, nil, testLogger())
	s.RunSessionCleanup(ctx)

	if _, err := store.GetByTokenHash(ctx, "live"); err != nil {
		t.Errorf("live session removed: %v", err)
	}
	if _, err := store.GetByTokenHash(ctx, "dead"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("expired session survived cleanup: %v", err)
	}
}

func TestRunInviteCleanup(t *testing.T) {
	ctx := context.Background()
	ws := workspaces.NewMemoryService()

	workspace, err := ws.CreateWorkspace(ctx, "Acme", "acme", 1)
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	if err := ws.InviteMember(ctx, workspace.ID, 2, "member", 1); err != nil {
		t.Fatalf("InviteMember: %v", err)
	}

	cfg := testConfig()
	cfg.InviteMaxAge = 0 // every pending invite is stale immediately

	s := NewScheduler(cfg, nil, ws, testLogger())
	s.RunInviteCleanup(ctx)

	if _, err := ws.GetMembership(ctx, 2, workspace.ID); !errors.Is(err, workspaces.ErrMembershipNotFound) {
		t.Errorf("stale invite survived cleanup: %v", err)
	}

	// Accepted owner membership is untouched
	if _, err := ws.GetMembership(ctx, 1, workspace.ID); err != nil {
		t.Errorf("owner membership removed: %v", err)
	}
}

func TestStartAndStop(t *testing.T) {
	store := ratelimit.NewLocalStore()
	s := NewScheduler(testConfig(), auth.NewMemoryStore(), workspaces.NewMemoryService(), testLogger()).
		WithSweeper(store, time.Minute)

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.SessionCleanupSchedule = "not a schedule"

	s := NewScheduler(cfg, auth.NewMemoryStore(), nil, testLogger())
	if err := s.Start(); err == nil {
		t.Error("Start accepted an invalid cron expression")
	}
}

func TestDisabledSchedulesNothing(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	cfg.SessionCleanupSchedule = "also not a schedule" // never parsed

	s := NewScheduler(cfg, auth.NewMemoryStore(), nil, testLogger())
	if err := s.Start(); err != nil {
		t.Errorf("disabled Start: %v", err)
	}
}
