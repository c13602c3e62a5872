// Package server implements the parley relay: the session registry, the
// per-connection protocol state machine, and the websocket listener that
// binds them together.
//
// The relay is the trust boundary of the system. It authenticates
// identities against the credential store, tracks which identities are
// online, and fans login, logout, and broadcast events out to every online
// peer. It never decrypts private message payloads; #post traffic is
// forwarded as opaque ciphertext.
//
// Each accepted connection is served by two goroutines in the style of a
// read pump and a write pump: the read side drives the router state
// machine, and the write side drains a buffered outbound channel that is
// the session's delivery handle. All cross-connection state lives in the
// Registry, which is the only shared mutable structure.
package server
