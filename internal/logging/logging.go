// Package logging provides the leveled logging backend shared by the
// parley server and client, built on the go-logging package. Components
// obtain named module loggers from a single Backend so output routing and
// level are decided once, at startup.
package logging

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/op/go-logging.v1"
)

// Logger is the per-module leveled logger handed out by a Backend.
type Logger = logging.Logger

// Backend is a log backend.
type Backend struct {
	w       io.Writer
	backend logging.LeveledBackend
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b.backend)
	return l
}

// New initializes a logging backend. An empty file means stderr; disable
// suppresses all output.
func New(file, level string, disable bool) (*Backend, error) {
	b := new(Backend)

	lvl, err := levelFromString(level)
	if err != nil {
		return nil, err
	}

	switch {
	case disable:
		b.w = io.Discard
	case file == "":
		b.w = os.Stderr
	default:
		const fileMode = 0o600
		flags := os.O_CREATE | os.O_APPEND | os.O_WRONLY
		b.w, err = os.OpenFile(file, flags, fileMode)
		if err != nil {
			return nil, fmt.Errorf("logging: failed to open log file: %w", err)
		}
	}

	logFmt := logging.MustStringFormatter("%{time:15:04:05.000} %{level:.4s} %{module}: %{message}")
	base := logging.NewLogBackend(b.w, "", 0)
	formatted := logging.NewBackendFormatter(base, logFmt)
	b.backend = logging.AddModuleLevel(formatted)
	b.backend.SetLevel(lvl, "")
	return b, nil
}

// NewDiscard returns a backend that drops everything, for tests and for
// components constructed without explicit logging configuration.
func NewDiscard() *Backend {
	b, _ := New("", "ERROR", true)
	return b
}

func levelFromString(l string) (logging.Level, error) {
	switch l {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("logging: invalid level: '%v'", l)
	}
}
