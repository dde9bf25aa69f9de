// Package authz holds the pure core of the authorization pipeline: the
// closed workspace role set, per-route allowed-role sets, the role
// evaluation decision, and the typed guard-failure taxonomy shared by all
// guards and translated once at the HTTP boundary.
//
// Nothing in this package performs I/O. Guards in pkg/middleware bind
// session and membership context before evaluation; a missing binding is a
// caller bug reported as ErrContextNotBound, never an implicit lookup.
package authz
