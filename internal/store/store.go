package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"parley/internal/crypto"
	"parley/internal/logging"
	"parley/internal/protocol"
)

// ErrAuthFailed is returned by Authenticate for both an unknown id and a
// credential mismatch.
var ErrAuthFailed = errors.New("store: authentication failed")

const currentSchemaVersion = 1

// Store is the SQLite-backed identity database.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// Open opens (and if necessary creates) the identity database at path.
func Open(path string, logBackend *logging.Backend) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4) // SQLite is single-writer; more connections just contend
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:  db,
		log: logBackend.GetLogger("store"),
	}
	s.log.Debugf("opened identity database %q", path)
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("store: schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	if version < 1 {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS identities (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				public_key BLOB NOT NULL,
				credential_hash TEXT NOT NULL,
				salt TEXT NOT NULL,
				registered_at DATETIME NOT NULL
			);
		`); err != nil {
			return err
		}
		if _, err := tx.Exec("PRAGMA user_version = 1"); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Register creates a new identity and returns its fresh unique id. The
// credential digest is stored only as a salted re-hash under a new random
// salt.
func (s *Store) Register(name string, publicKey []byte, credentialDigest string) (int64, error) {
	salt, err := crypto.NewSalt()
	if err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		"INSERT INTO identities (name, public_key, credential_hash, salt, registered_at) VALUES (?, ?, ?, ?, ?)",
		name, publicKey, crypto.SaltedHash(credentialDigest, salt), salt, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("store: register %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.log.Noticef("registered %q as id=%d", name, id)
	return id, nil
}

// Authenticate verifies the credential digest for id and returns the
// stored display name. Unknown ids and mismatched digests both yield
// ErrAuthFailed.
func (s *Store) Authenticate(id int64, credentialDigest string) (string, error) {
	var name, storedHash, salt string
	err := s.db.QueryRow(
		"SELECT name, credential_hash, salt FROM identities WHERE id = ?",
		id,
	).Scan(&name, &storedHash, &salt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.log.Warningf("authentication for unknown id=%d", id)
		return "", ErrAuthFailed
	case err != nil:
		return "", err
	}

	if !crypto.HashEqual(crypto.SaltedHash(credentialDigest, salt), storedHash) {
		s.log.Warningf("authentication failed for id=%d", id)
		return "", ErrAuthFailed
	}
	return name, nil
}

// ListAll returns every known identity, used once at startup to seed the
// session registry in the offline state.
func (s *Store) ListAll() ([]protocol.UserRecord, error) {
	rows, err := s.db.Query("SELECT id, name, public_key FROM identities ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []protocol.UserRecord
	for rows.Next() {
		var u protocol.UserRecord
		if err := rows.Scan(&u.ID, &u.Name, &u.PublicKey); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
