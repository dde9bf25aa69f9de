// Package ratelimit provides the abuse-prevention budget for sensitive
// endpoints: fixed-window counters with an atomic check-and-increment,
// keyed by caller identity and route class (signin:<ip>, email-otp:<email>).
//
// Two interchangeable backends implement Store: a Redis store shared across
// instances, and a mutex-guarded in-process map used as the fallback when
// Redis is unreachable. FallbackStore composes them and makes degradation
// observable. Whether a store outage fails open or closed is a per-endpoint
// Policy decision, never an implicit default buried in the limiter.
package ratelimit
