package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rampline/rampline/pkg/contextkeys"
	"github.com/rampline/rampline/pkg/httputil"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event) error

	// Close closes the logger and flushes any buffered events
	Close() error
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger from context. Returns a no-op
// logger if none is set so call sites never need a nil check.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NopLogger{}
}

// NopLogger discards all events
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                { return nil }

// NewEvent creates an event with request context populated. r may be nil.
func NewEvent(ctx context.Context, r *http.Request, eventType EventType, status EventStatus) *Event {
	event := &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		RequestID: contextkeys.GetRequestID(ctx),
	}

	if r != nil {
		event.IPAddress = httputil.ClientIP(r)
		event.UserAgent = r.UserAgent()
		event.Method = r.Method
		event.Path = r.URL.Path
	}

	if workspaceID, ok := contextkeys.GetWorkspaceID(ctx); ok {
		event.WorkspaceID = &workspaceID
	}

	return event
}

// LogAuthentication records a sign-in, sign-out, or failed sign-in
func LogAuthentication(ctx context.Context, r *http.Request, eventType EventType, status EventStatus, userID *int64, email, message string) error {
	event := NewEvent(ctx, r, eventType, status)
	event.UserID = userID
	event.UserEmail = email
	event.Message = message
	return FromContext(ctx).Log(ctx, event)
}

// LogDenied records an authorization denial
func LogDenied(ctx context.Context, r *http.Request, userID *int64, role, reason string) error {
	event := NewEvent(ctx, r, EventTypeAuthzAccessDenied, EventStatusDenied)
	event.UserID = userID
	event.Role = role
	event.Message = reason
	return FromContext(ctx).Log(ctx, event)
}

// LogRateLimited records a throttled request
func LogRateLimited(ctx context.Context, r *http.Request, key string) error {
	event := NewEvent(ctx, r, EventTypeAuthzRateLimited, EventStatusDenied)
	event.Metadata = map[string]interface{}{"key": key}
	return FromContext(ctx).Log(ctx, event)
}
