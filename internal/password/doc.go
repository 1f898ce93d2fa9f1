// Package password hashes and verifies passwords with Argon2id in PHC
// string form. Only the fake backend stores passwords; the client never
// hashes anything it sends.
package password
