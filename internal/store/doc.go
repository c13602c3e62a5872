// Package store implements the persistent identity database backing the
// relay server.
//
// Each registered identity occupies one row: server-assigned id, display
// name, public key, salted credential hash, the per-identity salt, and the
// registration time. Rows are created on first login and never mutated or
// deleted afterwards.
//
// The store never holds a client's credential digest directly: Register
// re-hashes the digest under a fresh salt, and Authenticate recomputes the
// salted hash for comparison. An unknown id and a digest mismatch are
// reported identically so a caller cannot probe which ids exist.
package store
