package authz

import (
	"errors"
	"fmt"
	"time"
)

// Guard failures are typed so every guard can stay ignorant of transport
// concerns; a single boundary translator maps them onto the HTTP contract.

var (
	// ErrUnauthenticated is returned when no valid session backs the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotAMember is returned when the caller has no accepted membership in
	// the target workspace. Deliberately a 403-class signal, not a 404:
	// leaking workspace existence is acceptable, leaking resource existence
	// within it is not.
	ErrNotAMember = errors.New("not a member of workspace")

	// ErrInsufficientPermissions is returned when the caller's role is not in
	// the route's allowed set. The message is matched verbatim by existing
	// clients; do not reword it.
	ErrInsufficientPermissions = errors.New("Insufficient permissions")

	// ErrContextNotBound indicates a guard ran without its upstream context
	// (session or membership) attached. That is a wiring bug in the caller,
	// surfaced as an internal error rather than papered over with a lookup.
	ErrContextNotBound = errors.New("authorization context not bound")
)

// RateLimitedError is returned when an abuse-prevention budget is exhausted.
// RetryAfter is a caller-side hint; the pipeline never retries on the
// caller's behalf.
type RateLimitedError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// IsRateLimited checks if an error is a rate limited error
func IsRateLimited(err error) bool {
	var rle *RateLimitedError
	return errors.As(err, &rle)
}

// ValidationError is a configuration-time failure, e.g. overlapping tool
// allow/deny lists on an integration. Raised before persistence, never
// resolved at runtime by precedence.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError creates a validation error for a specific field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
