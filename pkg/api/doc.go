// Package api is the HTTP surface of the authorization pipeline.
//
// Every route is declared as data: a middleware.RouteConfig naming whether
// the route is public, whether it binds a workspace, which roles may reach
// the handler, and whether a rate-limit rule runs first. Handlers never
// re-check authorization; by the time one runs, the guard chain has bound
// session and membership into the request context.
//
// The approval endpoints keep their business logic deliberately thin. What
// matters here is the exact authorization matrix: members can read,
// admins decide, and only the owner rewrites the escalation config.
package api
