// Package fakeapi is an in-process double of the remote auth backend. It
// speaks the same JSON contract as the real service, keeps its accounts in
// memory, hashes passwords with Argon2id, issues HS256 JWTs and can
// throttle failed logins through Redis.
//
// Tests drive it through helpers that a real backend would never expose:
// OTPFor and ResetTokenFor read the codes that would have been emailed,
// FailNext injects one error response and Block parks an endpoint until
// released.
package fakeapi
