package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// saltBytes is the length of a fresh per-identity salt before hex encoding.
const saltBytes = 16

// CredentialDigest hashes the serialized private key into the
// password-equivalent string the client presents at login. The raw key
// never leaves the client; serialization is the fixed 32-byte form, so
// the digest is stable across runs.
func CredentialDigest(priv PrivateKey) string {
	sum := sha256.Sum256(priv.Slice())
	return hex.EncodeToString(sum[:])
}

// NewSalt returns a fresh random per-identity salt.
func NewSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SaltedHash re-hashes a credential digest under a salt. This is what the
// server stores and compares; it never sees or keeps the bare digest.
func SaltedHash(digest, salt string) string {
	sum := sha256.Sum256([]byte(digest + salt))
	return hex.EncodeToString(sum[:])
}

// HashEqual compares two hex hashes in constant time.
func HashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
