package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownStep is one named teardown action. Steps run in registration
// order so dependents drain before the stores underneath them close.
type ShutdownStep struct {
	Name  string
	Close func(context.Context) error
}

// ShutdownManager drains the service when SIGINT or SIGTERM arrives: the
// API listener stops accepting first, then each registered step runs in
// turn under a single deadline.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration
	steps   []ShutdownStep
}

// NewShutdownManager creates a manager for the given API server. A zero
// timeout gets a 30 second default.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{logger: logger, server: server, timeout: timeout}
}

// Register appends a teardown step. Order matters: register the things
// that depend on a resource before the resource itself.
func (sm *ShutdownManager) Register(name string, fn func(context.Context) error) {
	sm.steps = append(sm.steps, ShutdownStep{Name: name, Close: fn})
}

// WaitForShutdown blocks until a termination signal, then drains
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.WithField("signal", sig.String()).Info("Starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	var errs []error

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("API server shutdown error")
			errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
		} else {
			sm.logger.Info("API server drained")
		}
	}

	for _, step := range sm.steps {
		if err := ctx.Err(); err != nil {
			sm.logger.WithField("step", step.Name).Warn("Shutdown deadline reached, skipping remaining steps")
			errs = append(errs, fmt.Errorf("shutdown deadline before %s", step.Name))
			break
		}
		if err := step.Close(ctx); err != nil {
			sm.logger.WithError(err).WithField("step", step.Name).Error("Shutdown step failed")
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		sm.logger.WithField("step", step.Name).Debug("Shutdown step complete")
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	sm.logger.Info("Graceful shutdown complete")
	return nil
}

// GracefulShutdown runs the manager once with the given steps
func GracefulShutdown(logger *Logger, server *http.Server, steps ...ShutdownStep) error {
	manager := NewShutdownManager(logger, server, 30*time.Second)
	for _, step := range steps {
		manager.Register(step.Name, step.Close)
	}
	return manager.WaitForShutdown()
}
