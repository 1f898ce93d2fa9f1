// Package api is the client side of the remote authentication backend.
//
// [Client] is the contract the authflow Controller depends on; [HTTPClient]
// implements it with JSON over net/http. Request and response shapes are
// owned by the backend and summarised by the types in this package.
//
// # Errors
//
// Non-2xx responses become [*Error] carrying the status code and the
// server's message. 401 responses match [ErrUnauthorized] under errors.Is,
// transport failures wrap [ErrUnavailable].
package api
