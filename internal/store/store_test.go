package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"parley/internal/crypto"
	"parley/internal/logging"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "chat.db"), logging.NewDiscard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newIdentity(t *testing.T) (crypto.PrivateKey, []byte, string) {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return priv, pub.Slice(), crypto.CredentialDigest(priv)
}

func TestRegisterAssignsSequentialIDs(t *testing.T) {
	s := openTestStore(t)

	_, pubA, digestA := newIdentity(t)
	idA, err := s.Register("alice", pubA, digestA)
	require.NoError(t, err)
	require.EqualValues(t, 1, idA)

	_, pubB, digestB := newIdentity(t)
	idB, err := s.Register("bob", pubB, digestB)
	require.NoError(t, err)
	require.EqualValues(t, 2, idB)
}

func TestAuthenticate(t *testing.T) {
	s := openTestStore(t)

	_, pub, digest := newIdentity(t)
	id, err := s.Register("alice", pub, digest)
	require.NoError(t, err)

	name, err := s.Authenticate(id, digest)
	require.NoError(t, err)
	require.Equal(t, "alice", name)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	s := openTestStore(t)

	_, pub, digest := newIdentity(t)
	id, err := s.Register("alice", pub, digest)
	require.NoError(t, err)

	// Wrong credential for a known id.
	_, _, badDigest := newIdentity(t)
	_, err = s.Authenticate(id, badDigest)
	require.ErrorIs(t, err, ErrAuthFailed)

	// Unknown id reports the identical error.
	_, err = s.Authenticate(9999, digest)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestListAll(t *testing.T) {
	s := openTestStore(t)

	users, err := s.ListAll()
	require.NoError(t, err)
	require.Empty(t, users)

	_, pubA, digestA := newIdentity(t)
	_, err = s.Register("alice", pubA, digestA)
	require.NoError(t, err)
	_, pubB, digestB := newIdentity(t)
	_, err = s.Register("bob", pubB, digestB)
	require.NoError(t, err)

	users, err = s.ListAll()
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "alice", users[0].Name)
	require.Equal(t, pubA, users[0].PublicKey)
	require.Equal(t, "bob", users[1].Name)
	// The credential hash never leaves the store.
	require.Empty(t, users[0].CredentialDigest)
}

func TestReopenKeepsIdentities(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.db")

	s, err := Open(path, logging.NewDiscard())
	require.NoError(t, err)
	_, pub, digest := newIdentity(t)
	id, err := s.Register("alice", pub, digest)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, logging.NewDiscard())
	require.NoError(t, err)
	defer s.Close()

	name, err := s.Authenticate(id, digest)
	require.NoError(t, err)
	require.Equal(t, "alice", name)
}
