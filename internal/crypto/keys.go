package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the size of both X25519 key halves in bytes.
const KeySize = 32

// PublicKey is a Curve25519 public key.
type PublicKey [KeySize]byte

// Slice returns the key as a []byte.
func (p PublicKey) Slice() []byte { return p[:] }

// PrivateKey is a Curve25519 private key.
type PrivateKey [KeySize]byte

// Slice returns the key as a []byte.
func (k PrivateKey) Slice() []byte { return k[:] }

// GenerateKeyPair returns a fresh X25519 key pair.
func GenerateKeyPair() (PrivateKey, PublicKey, error) {
	var priv PrivateKey
	if _, err := rand.Read(priv[:]); err != nil {
		return PrivateKey{}, PublicKey{}, err
	}
	clampScalar(&priv)
	return priv, PublicKeyFromPrivate(priv), nil
}

// PublicKeyFromPrivate derives the public half of a key pair.
func PublicKeyFromPrivate(priv PrivateKey) PublicKey {
	var pub [KeySize]byte
	p := [KeySize]byte(priv)
	curve25519.ScalarBaseMult(&pub, &p)
	return PublicKey(pub)
}

// ParsePublicKey restores a PublicKey from its serialized form.
func ParsePublicKey(b []byte) (PublicKey, error) {
	if len(b) != KeySize {
		return PublicKey{}, fmt.Errorf("crypto: bad public key length %d", len(b))
	}
	var pub PublicKey
	copy(pub[:], b)
	return pub, nil
}

// SaveKeyFile writes the private key to path, readable only by the owner.
func SaveKeyFile(path string, priv PrivateKey) error {
	return os.WriteFile(path, priv.Slice(), 0o600)
}

// LoadKeyFile reads a private key from path and derives its public half.
func LoadKeyFile(path string) (PrivateKey, PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PrivateKey{}, PublicKey{}, err
	}
	defer Wipe(raw)
	if len(raw) != KeySize {
		return PrivateKey{}, PublicKey{}, fmt.Errorf("crypto: bad key file %q: %d bytes", path, len(raw))
	}
	var priv PrivateKey
	copy(priv[:], raw)
	return priv, PublicKeyFromPrivate(priv), nil
}

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:10])
}

func clampScalar(k *PrivateKey) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}
