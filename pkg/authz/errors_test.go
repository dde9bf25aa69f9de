package authz

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestInsufficientPermissionsMessage(t *testing.T) {
	// Existing clients match this string verbatim.
	if ErrInsufficientPermissions.Error() != "Insufficient permissions" {
		t.Errorf("message = %q, want %q", ErrInsufficientPermissions.Error(), "Insufficient permissions")
	}
}

func TestIsRateLimited(t *testing.T) {
	err := &RateLimitedError{Key: "signin:1.2.3.4", RetryAfter: 30 * time.Second}
	if !IsRateLimited(err) {
		t.Error("IsRateLimited should match RateLimitedError")
	}
	wrapped := fmt.Errorf("guard: %w", err)
	if !IsRateLimited(wrapped) {
		t.Error("IsRateLimited should match wrapped RateLimitedError")
	}
	if IsRateLimited(errors.New("other")) {
		t.Error("IsRateLimited matched unrelated error")
	}

	var rle *RateLimitedError
	if !errors.As(wrapped, &rle) || rle.RetryAfter != 30*time.Second {
		t.Error("RetryAfter lost through wrapping")
	}
}

func TestIsValidation(t *testing.T) {
	err := NewValidationError("tools", "allow and deny lists overlap")
	if !IsValidation(err) {
		t.Error("IsValidation should match ValidationError")
	}
	if err.Error() != "tools: allow and deny lists overlap" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if IsValidation(ErrNotAMember) {
		t.Error("IsValidation matched unrelated error")
	}
}
