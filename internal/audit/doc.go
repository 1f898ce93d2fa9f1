// Package audit implements async event dispatching for authentication flow
// operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay. Drops are counted per event type,
//     and [Dispatcher.Flush] lets a closing controller wait for its events
//     without stopping a dispatcher shared with other clients.
//   - [Event]: one flow record (type, client, user, state change, metadata).
//     The Event* constants name the types the controller emits.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that belongs to the Controller.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authflow or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
