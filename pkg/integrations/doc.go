// Package integrations manages workspace-scoped third-party integration
// configurations and their capability grants.
//
// Each integration carries a three-bit access level (read, write, execute)
// with a fixed name for every one of the eight values, plus optional allow
// and deny tool lists that must not overlap. Secrets (header and env
// values) are only returned to owners and admins; lower roles receive the
// key names with values stripped and the record marked redacted, so a
// member can see what an integration touches without reading credentials.
//
// Storage is Postgres with JSONB columns for the list and map fields; a
// MemoryStore backs tests. All queries are workspace-scoped, so an id
// from another workspace is unresolvable rather than forbidden.
package integrations
