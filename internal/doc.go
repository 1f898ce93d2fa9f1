// Package internal contains helpers private to authflow: secure random
// codes and tokens for the fake backend.
//
// # Sub-packages
//
//   - appconfig: viper-backed settings for the binaries
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - fakeapi: in-process auth backend double
//   - logger: zap construction and PII masking
//   - metrics: lock-free counters and latency histograms
//   - rate: Redis-backed fixed-window limiter
//   - security: configuration posture report logged at startup
//
// # What this package must NOT do
//
//   - Export types that appear in the public authflow API.
//   - Be imported by any package outside the authflow module.
package internal
