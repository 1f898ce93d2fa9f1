// Package middleware adapts authflow route decisions to net/http.
//
// # Guards
//
//   - [Guard] redirects to the public home when Authorize denies a path.
//   - [RequireAuthenticated] answers 401 for anonymous clients.
//   - [RequireRole] answers 401 or 403 based on the session roles.
//
// Each guard resolves the client's [Authorizer] through a [Resolver] and
// stores it in the request context for the wrapped handler.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Authorizer calls. Role rules
// live in the controller config; the guards only act on the answer.
//
// # What this package must NOT do
//
//   - Inspect or validate tokens.
//   - Call the remote auth API.
//   - Hold any per-client state of its own.
package middleware
