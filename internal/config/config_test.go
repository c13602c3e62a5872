package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.Equal(t, ":50000", cfg.Server.Address)
	require.Equal(t, "./db", cfg.Server.DataDir)
	require.Equal(t, "chat.db", cfg.Server.Database)
	require.Equal(t, "NOTICE", cfg.Logging.Level)
	require.False(t, cfg.Logging.Disable)
}

func TestLoad(t *testing.T) {
	cfg, err := Load([]byte(`
[Server]
Address = "127.0.0.1:6000"
DataDir = "/var/lib/parley"

[Logging]
Level = "DEBUG"
File = "/var/log/parleyd.log"
`))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:6000", cfg.Server.Address)
	require.Equal(t, "/var/lib/parley", cfg.Server.DataDir)
	require.Equal(t, "chat.db", cfg.Server.Database, "omitted fields keep their defaults")
	require.Equal(t, "DEBUG", cfg.Logging.Level)
	require.Equal(t, "/var/log/parleyd.log", cfg.Logging.File)
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load([]byte(`Server = "not a table"`))
	require.Error(t, err)
}

func TestDatabasePath(t *testing.T) {
	cfg := Default()
	cfg.Server.DataDir = "/data"
	require.Equal(t, filepath.Join("/data", "chat.db"), cfg.DatabasePath())
}
