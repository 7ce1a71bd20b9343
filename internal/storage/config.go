package storage

import (
	"strings"

	"codeberg.org/mutker/ircapture/internal/errors"
)

const (
	defaultDirPerm = 0o755
	memoryURI      = ":memory:"
)

type Config struct {
	// DBURI is a SQLite file path, ":memory:", or a "file:" URI.
	DBURI string
	// RemoveExisting deletes the database file before opening it.
	RemoveExisting bool
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DBURI) == "" {
		return errors.New().New(ErrInvalidDBURI)
	}
	return nil
}

func (c Config) isMemory() bool {
	return c.DBURI == memoryURI || strings.Contains(c.DBURI, "mode=memory")
}

func (c Config) isURI() bool {
	return strings.HasPrefix(c.DBURI, "file:")
}

// dsn enables WAL for plain file paths. URIs are passed through untouched.
func (c Config) dsn() string {
	if c.isMemory() || c.isURI() {
		return c.DBURI
	}
	return c.DBURI + "?_journal=WAL"
}
