package main

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"

	"github.com/rampline/rampline/pkg/auth"
)

// sqlVerifier matches a presented credential against the digest stored on
// the users table. The digest scheme belongs to the account system that
// writes the column; this side only compares.
type sqlVerifier struct {
	db *sql.DB
}

func newSQLVerifier(db *sql.DB) *sqlVerifier {
	return &sqlVerifier{db: db}
}

func (v *sqlVerifier) Verify(ctx context.Context, email, password string) (*auth.User, error) {
	query := `SELECT id, email, verified, password_digest FROM users WHERE email = $1`

	var user auth.User
	var digest string
	err := v.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Verified, &digest)
	if err == sql.ErrNoRows {
		// Same answer as a wrong password; account existence stays private
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	presented := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(presented[:])), []byte(digest)) != 1 {
		return nil, auth.ErrInvalidCredentials
	}
	return &user, nil
}
