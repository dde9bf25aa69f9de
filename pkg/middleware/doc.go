// Package middleware implements the request guard chain: rate limiting,
// session resolution, workspace binding, and role evaluation.
//
// # Overview
//
// A Pipeline wires the guards to their backing services once; routes
// declare what they need with a RouteConfig and the chain runs in a fixed
// order:
//
//	RateLimit -> Session -> Workspace -> Roles -> handler
//
// Each stage either enriches the request context (pkg/contextkeys) or
// terminates with a typed failure from pkg/authz, translated exactly once
// at the boundary by httputil.WriteGuardError.
//
// A workspace route admits callers only by declaring Roles or AnyMember;
// a zero-value RouteConfig leaves the role set empty and denies everyone.
//
// # Usage Example
//
//	pipeline := &middleware.Pipeline{
//		Sessions:    sessionService,
//		Memberships: workspaceService,
//		Limiter:     limiter,
//		Logger:      logger,
//		Metrics:     metrics,
//	}
//
//	router.Handle("/v1/workspaces/{workspace_id}/approvals",
//		pipeline.ProtectFunc(middleware.RouteConfig{
//			Roles: authz.NewRoleSet(authz.RoleOwner, authz.RoleAdmin, authz.RoleMember),
//		}, listApprovals)).Methods("GET")
//
// # Failure Contract
//
//	401 missing/invalid/expired session
//	403 not a member (includes pending invites), insufficient role
//	429 rate limited, with Retry-After and X-RateLimit-* headers
//	400 malformed or missing workspace id
//	500 guard ran without its preconditions (wiring bug), fail-closed limiter outage
//
// # Related Packages
//
//   - pkg/authz: role sets and the failure taxonomy
//   - pkg/ratelimit: limiter stores and policies
//   - pkg/httputil: boundary translation
package middleware
