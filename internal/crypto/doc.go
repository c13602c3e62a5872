// Package crypto provides the cryptographic primitives used by parley.
//
// It covers three concerns:
//
//   - Long-term X25519 key pairs: generation, raw (de)serialization, key
//     files on disk, and short fingerprints for display.
//   - The hybrid public-key encryption used for private messages: an
//     ephemeral X25519 agreement, HKDF-SHA256 key derivation, and a
//     ChaCha20-Poly1305 AEAD. Only the recipient's private key can open
//     the result; the relay never can.
//   - The credential scheme: a client proves ownership of its private key
//     by a SHA-256 digest of the serialized key, which the server stores
//     only in salted, re-hashed form.
package crypto
