// Package protocol defines the envelope exchanged between parley clients
// and the relay server.
//
// Every message on the wire is an Envelope tagged with an Act. Clients send
// the request acts (#login, #logout, #post, #broadcast); the server answers
// with response acts (SR_*) and pushes delivery and roster-delta acts (SP_*).
//
// The payload of an Envelope is opaque to the relay for private messages:
// #post carries ciphertext produced by the sender for exactly one recipient,
// and the server forwards it unmodified. Broadcast payloads are plaintext by
// design, since the recipient set is unknown to the sender at encryption
// time.
package protocol
