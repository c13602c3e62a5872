// Package client implements the parley session controller: the client-side
// mirror of the relay protocol.
//
// A Controller owns the local identity (including the private key), the
// last-known roster of online peers, and the currently selected receiver.
// Outbound operations (login, post, logout) are issued serially from the
// caller's control loop and each returns after, or hands back a way to
// wait for, the server's acknowledgment, bounded by a timeout. A dedicated
// receive goroutine processes every inbound envelope as it arrives:
// private messages are decrypted with the local private key, broadcasts
// are surfaced as-is, and roster deltas patch the local roster map.
//
// A timeout waiting for an acknowledgment is a soft failure: the
// operation's outcome is indeterminate but the session stays usable.
package client
