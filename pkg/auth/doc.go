// Package auth provides session credentials for the authorization pipeline:
// opaque token generation (hashed at rest), session storage with Postgres
// and in-memory backends, a bounded read-through cache, and the resolution
// service the session guard calls. Password verification is a collaborator
// seam (CredentialVerifier); hashing and account storage are out of scope.
package auth
