// Package jwt inspects bearer tokens on the client without verifying their
// signature. The client never holds signing keys; inspection only lets it
// drop a token whose exp claim has already passed before spending a network
// round-trip on validation. Opaque (non-JWT) tokens are reported with
// [ErrNotJWT] and must be validated remotely.
package jwt
