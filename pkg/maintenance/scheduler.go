// Package maintenance runs the background janitor jobs: expired-session
// deletion, stale-invitation cleanup, and the local rate-limit counter
// sweep. Scheduling is plain cron; each job is also callable directly so
// operators and tests can trigger one run without waiting on a schedule.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rampline/rampline/pkg/config"
	"github.com/rampline/rampline/pkg/observability"
)

// SessionJanitor deletes sessions past their expiry
type SessionJanitor interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// InviteJanitor removes pending invitations older than maxAge
type InviteJanitor interface {
	CleanupExpiredInvitations(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Sweeper drops expired local rate-limit counters
type Sweeper interface {
	Sweep()
}

// Scheduler owns the cron instance and the job set
type Scheduler struct {
	cron          *cron.Cron
	cfg           config.MaintenanceConfig
	sessions      SessionJanitor
	invites       InviteJanitor
	sweeper       Sweeper
	sweepInterval time.Duration
	logger        *observability.Logger
}

// NewScheduler creates a scheduler; nil collaborators skip their job
func NewScheduler(cfg config.MaintenanceConfig, sessions SessionJanitor, invites InviteJanitor, logger *observability.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		cfg:      cfg,
		sessions: sessions,
		invites:  invites,
		logger:   logger,
	}
}

// WithSweeper adds the local rate-limit counter sweep at the given interval
func (s *Scheduler) WithSweeper(sweeper Sweeper, interval time.Duration) *Scheduler {
	s.sweeper = sweeper
	s.sweepInterval = interval
	return s
}

// Start registers the configured jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("maintenance disabled, not scheduling jobs")
		return nil
	}

	if s.sessions != nil {
		if _, err := s.cron.AddFunc(s.cfg.SessionCleanupSchedule, func() {
			defer observability.RecoverPanic(s.logger, "session cleanup")
			s.RunSessionCleanup(context.Background())
		}); err != nil {
			return fmt.Errorf("schedule session cleanup: %w", err)
		}
	}

	if s.invites != nil {
		if _, err := s.cron.AddFunc(s.cfg.InviteCleanupSchedule, func() {
			defer observability.RecoverPanic(s.logger, "invite cleanup")
			s.RunInviteCleanup(context.Background())
		}); err != nil {
			return fmt.Errorf("schedule invite cleanup: %w", err)
		}
	}

	if s.sweeper != nil {
		if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.sweepInterval), func() {
			defer observability.RecoverPanic(s.logger, "rate limit sweep")
			s.sweeper.Sweep()
		}); err != nil {
			return fmt.Errorf("schedule rate limit sweep: %w", err)
		}
	}

	s.cron.Start()
	s.logger.WithField("session_schedule", s.cfg.SessionCleanupSchedule).
		WithField("invite_schedule", s.cfg.InviteCleanupSchedule).
		Info("maintenance jobs scheduled")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("maintenance scheduler stopped")
}

// RunSessionCleanup deletes expired sessions once
func (s *Scheduler) RunSessionCleanup(ctx context.Context) {
	deleted, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.WithError(err).Error("session cleanup failed")
		return
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("expired sessions removed")
	}
}

// RunInviteCleanup removes stale pending invitations once
func (s *Scheduler) RunInviteCleanup(ctx context.Context) {
	removed, err := s.invites.CleanupExpiredInvitations(ctx, s.cfg.InviteMaxAge)
	if err != nil {
		s.logger.WithError(err).Error("invite cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("stale invitations removed")
	}
}
