// Package security summarizes the security posture of a client
// configuration and lists the findings an operator should fix before
// production use.
//
// # What this package must NOT do
//
//   - Be imported by library code. Only the binaries print the report.
package security
