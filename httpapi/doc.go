// Package httpapi is a backend-for-frontend that hosts one authflow
// Controller per browser client.
//
// Clients are identified by a random id in the af_client cookie. The
// [Registry] builds a controller on first sight of an id, bootstraps its
// session from the token stores once, and evicts idle controllers in
// [Registry.Sweep]. Every handler answers with the controller's View as
// JSON, so a front end renders exactly what the controller decided.
//
// Remote and validation failures answer 200 with an error notice in the
// view. Flow conflicts (an operation already running, or one not allowed
// from the current state) answer 409. Malformed bodies answer 400.
//
// # Architecture boundaries
//
// Handlers translate HTTP into Controller calls and nothing more. Token
// persistence, validation and role checks stay in the controller.
//
// # What this package must NOT do
//
//   - Read or write tokens directly.
//   - Talk to the auth backend except through Controller.Fetch.
package httpapi
