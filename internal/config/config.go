// Package config provides the parleyd server configuration, loaded from a
// TOML file with defaults applied for anything omitted.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	defaultAddress  = ":50000"
	defaultDataDir  = "./db"
	defaultDatabase = "chat.db"
	defaultLogLevel = "NOTICE"
)

// Server is the relay server configuration.
type Server struct {
	// Address is the TCP listen address.
	Address string

	// DataDir is the directory holding the identity database. It is
	// created on startup if missing.
	DataDir string

	// Database is the SQLite file name inside DataDir.
	Database string
}

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level specifies the log level.
	Level string
}

// Config is the top level parleyd configuration.
type Config struct {
	Server  *Server
	Logging *Logging
}

// DatabasePath returns the full path of the SQLite file.
func (cfg *Config) DatabasePath() string {
	return filepath.Join(cfg.Server.DataDir, cfg.Server.Database)
}

// FixupAndValidate applies defaults to config entries and validates the
// configuration.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Server == nil {
		cfg.Server = &Server{}
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.DataDir == "" {
		cfg.Server.DataDir = defaultDataDir
	}
	if cfg.Server.Database == "" {
		cfg.Server.Database = defaultDatabase
	}
	if cfg.Logging == nil {
		cfg.Logging = &Logging{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	return nil
}

// Load parses and validates the provided buffer as a TOML config.
func Load(b []byte) (*Config, error) {
	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse: %w", err)
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the provided file.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := new(Config)
	_ = cfg.FixupAndValidate()
	return cfg
}
