// Package rate provides a Redis-backed fixed-window counter used to
// throttle HTTP requests per browser client and, in the fake backend,
// failed logins per email.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys are
// "<prefix>:<key>".
//
// # What this package must NOT do
//
//   - Decide what a key means. Callers pick the key and the budget.
//   - Be imported outside the authflow module.
package rate
