package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// hybridInfo binds derived keys to this construction.
const hybridInfo = "parley-hybrid-v1"

// Overhead is the number of bytes Encrypt adds to a plaintext.
const Overhead = KeySize + chacha20poly1305.NonceSize + chacha20poly1305.Overhead

// Encrypt seals plaintext to the recipient's public key.
//
// A fresh ephemeral X25519 pair is generated per message; the shared
// secret is expanded with HKDF-SHA256 bound to both public keys, and the
// plaintext is sealed with ChaCha20-Poly1305. The wire form is
// ephemeralPub || nonce || box. Plaintext may be empty.
func Encrypt(plaintext []byte, recipient PublicKey) ([]byte, error) {
	ephPriv, ephPub, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	defer Wipe(ephPriv[:])

	shared, err := curve25519.X25519(ephPriv.Slice(), recipient.Slice())
	if err != nil {
		return nil, err
	}
	defer Wipe(shared)

	key, err := deriveKey(shared, ephPub, recipient)
	if err != nil {
		return nil, err
	}
	defer Wipe(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(plaintext)+Overhead)
	out = append(out, ephPub.Slice()...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt with the recipient's
// private key.
func Decrypt(ciphertext []byte, priv PrivateKey) ([]byte, error) {
	if len(ciphertext) < Overhead {
		return nil, fmt.Errorf("crypto: ciphertext too short (%d bytes)", len(ciphertext))
	}
	ephPub, err := ParsePublicKey(ciphertext[:KeySize])
	if err != nil {
		return nil, err
	}
	nonce := ciphertext[KeySize : KeySize+chacha20poly1305.NonceSize]
	box := ciphertext[KeySize+chacha20poly1305.NonceSize:]

	shared, err := curve25519.X25519(priv.Slice(), ephPub.Slice())
	if err != nil {
		return nil, err
	}
	defer Wipe(shared)

	key, err := deriveKey(shared, ephPub, PublicKeyFromPrivate(priv))
	if err != nil {
		return nil, err
	}
	defer Wipe(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: open failed: %w", err)
	}
	return plaintext, nil
}

// deriveKey expands the X25519 shared secret into an AEAD key. The info
// string binds both public keys so a transplanted header cannot decrypt
// under a different pair.
func deriveKey(shared []byte, ephPub, recipient PublicKey) ([]byte, error) {
	info := make([]byte, 0, len(hybridInfo)+2*KeySize)
	info = append(info, hybridInfo...)
	info = append(info, ephPub.Slice()...)
	info = append(info, recipient.Slice()...)

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, info), key); err != nil {
		return nil, err
	}
	return key, nil
}
