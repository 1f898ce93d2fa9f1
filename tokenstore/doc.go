// Package tokenstore persists the client's bearer token and optional
// refresh token.
//
// # Backends
//
//   - [RedisStore]: persistent key-value store keyed by client id.
//   - [CookieStore]: cookies held in an [net/http.CookieJar] for the API origin.
//   - [MemoryStore]: process-local store, used as a last-resort fallback.
//   - [Chain]: fans writes out to several stores and reads from the first
//     one that holds a value.
//
// # Architecture boundaries
//
// This package owns where tokens live and for how long. It does NOT decide
// when tokens are written or cleared; that belongs to the authflow
// Controller.
//
// # What this package must NOT do
//
//   - Inspect, validate or refresh tokens.
//   - Import authflow.
package tokenstore
