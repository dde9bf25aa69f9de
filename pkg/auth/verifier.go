package auth

import (
	"context"
	"errors"
)

// ErrInvalidCredentials is returned by a CredentialVerifier when the
// presented email/password pair does not match an account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// CredentialVerifier checks a sign-in credential against account storage.
// Password hashing and storage live with the application layer; the
// pipeline only needs the seam so the sign-in handler can mint sessions.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*User, error)
}
