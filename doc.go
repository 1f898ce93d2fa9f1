// Package authflow implements the client side of an email/password
// authentication flow: registration with one-time-code verification,
// login, forgot/reset password, OAuth callback handling, session bootstrap
// from persisted tokens, role derivation and route guarding.
//
// A [Controller] owns the flow state machine and the session of one
// browser client. It is built with [Builder] and talks to the remote auth
// backend through an [api.Client]. Tokens are persisted through a
// [tokenstore.Store], by default a chain of a durable store and a cookie jar.
//
// Controller methods are safe to call from multiple goroutines. Overlapping
// calls of the same operation are rejected with [ErrOperationInFlight];
// the loading flag covers every backend call in flight and is reset on
// every exit path.
//
// # Architecture boundaries
//
// authflow is the public surface. Remote wire types live in api, token
// persistence in tokenstore, HTTP glue in middleware and httpapi.
// Metrics and audit plumbing live under internal/ and reach callers only
// through [Telemetry].
//
// # What this package must NOT do
//
//   - Generate or check one-time codes, hash passwords or sign tokens.
//     The backend owns those decisions.
//   - Hold its mutex across a backend call.
//   - Retry a failed backend call.
package authflow
