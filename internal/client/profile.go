package client

import (
	"encoding/json"
	"errors"
	"os"
)

// Profile remembers the server-assigned identity between runs so a return
// login reuses the same id instead of registering again.
type Profile struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// LoadProfile reads a profile from path; a missing file yields a zero
// profile, not an error.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	return p, json.Unmarshal(b, &p)
}

// SaveProfile writes the profile via a temp file then rename.
func SaveProfile(path string, p Profile) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
