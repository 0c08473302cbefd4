// Package bridge provides the socket client for the host editor's
// story bridge.
//
// # Overview
//
// The host editor exposes a local unix socket accepting one JSON
// request per connection. This package wraps that exchange in a
// typed client: dial, send an envelope, read the answer, close.
//
// # Protocol
//
// Requests and responses are single JSON objects:
//
//	{"id": "01J...", "action": "fetch-all-documents", "payload": {...}}
//	{"ok": true, "data": {...}}
//	{"ok": false, "error": "no such layer"}
//
// Every request carries a fresh ULID so failures can be correlated in
// logs. Supported actions:
//
//   - fetch-all-documents: every open document with raw layer markup
//   - write-layer-updates: replace layer fragments in one transaction
//   - save-documents: save all open documents
//   - close-document, activate-document: window lifecycle
//   - get-layer-raw-markup: one layer's current fragment
//
// # Error Handling
//
// Transport failures (unreachable socket, deadline expired, broken
// envelope) surface as *Error with a Kind of NotConnected, Timeout, or
// Protocol; IsTimeout and IsNotConnected cover the common checks. A
// host that answers ok:false produced a domain failure, not a transport
// one, and comes back as a plain wrapped error carrying the host's
// message.
//
// # Concurrency
//
// Client serializes calls with an internal lock. The host processes
// one command at a time, so there is nothing to gain from parallel
// requests and plenty to lose.
//
// # Design Rationale
//
// The client holds no persistent connection. The host drops the
// socket between commands, and dialing per call keeps reconnect logic
// out of the picture entirely. No retries either; the session layer
// decides whether a failed exchange is worth repeating.
package bridge
