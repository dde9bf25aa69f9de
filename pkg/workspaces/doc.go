// Package workspaces provides the tenant model for the authorization
// pipeline: workspaces, memberships with roles and per-module permission
// overrides, and the invite lifecycle. A membership whose invite has not
// been accepted is a non-member for every authorization purpose.
//
// The workspace guard in pkg/middleware binds against the narrow
// MembershipGetter interface; the full Service is for the member-management
// API surface.
package workspaces
