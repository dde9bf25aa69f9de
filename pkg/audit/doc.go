// Package audit provides audit logging for authentication, authorization, and
// membership changes.
//
// # Event Types
//
// Authentication: signin, signin_failed, signout
// Authorization: access_denied, rate_limited
// Membership: invited, accepted, role_changed, removed
// Workspace: created, escalation_updated, integration_updated
//
// # Usage Example
//
// Wire a logger into the request context once, then record from anywhere:
//
//	ctx = audit.WithLogger(ctx, fileLogger)
//	audit.LogAuthentication(ctx, r, audit.EventTypeAuthSignin,
//		audit.EventStatusSuccess, &user.ID, user.Email, "signed in")
//
// Denials carry the actor and the reason:
//
//	audit.LogDenied(ctx, r, &userID, string(role), "Insufficient permissions")
//
// # Destinations
//
// FileLogger appends JSON lines with size-based rotation. MultiLogger fans
// out to several destinations, asynchronously by default. When no logger is
// in context, events are discarded by a no-op logger.
//
// # Related Packages
//
//   - pkg/middleware: records guard denials
//   - pkg/api: records sign-in results and membership changes
package audit
