package provider

import (
	"strings"
	"time"

	"github.com/dbglass/dbglass/dbcapabilities"
)

// Config is the unified connection configuration handed to provider
// factories. Secrets arrive already decrypted; the owning application
// datastore is responsible for storage and encryption. Engine-specific fields
// are ignored by engines they do not apply to.
type Config struct {
	// Optional stable identifier for the provider instance. A UUID is
	// assigned when empty.
	ID string `json:"id,omitempty"`

	// Connection metadata
	Name string `json:"name,omitempty"`

	// Network engines (PostgreSQL)
	Host         string `json:"host,omitempty"`
	Port         int    `json:"port,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	DatabaseName string `json:"databaseName,omitempty"`

	// SSL/TLS configuration
	SSL         bool   `json:"ssl,omitempty"`
	SSLMode     string `json:"sslMode,omitempty"` // verify-full, require, etc.
	SSLCert     string `json:"sslCert,omitempty"`
	SSLKey      string `json:"sslKey,omitempty"`
	SSLRootCert string `json:"sslRootCert,omitempty"`

	// Pooling (PostgreSQL)
	MaxConns        int32         `json:"maxConns,omitempty"`
	MinConns        int32         `json:"minConns,omitempty"`
	ConnectTimeout  time.Duration `json:"connectTimeout,omitempty"`
	MaxConnIdleTime time.Duration `json:"maxConnIdleTime,omitempty"`

	// Per-statement timeout; zero disables it.
	StatementTimeout time.Duration `json:"statementTimeout,omitempty"`

	// File engines (SQLite)
	FilePath      string `json:"filePath,omitempty"`
	FileMustExist bool   `json:"fileMustExist,omitempty"`

	// WAL journal mode and foreign-key enforcement are on by default; these
	// flags opt out explicitly.
	DisableWAL         bool `json:"disableWal,omitempty"`
	DisableForeignKeys bool `json:"disableForeignKeys,omitempty"`

	BusyTimeout time.Duration `json:"busyTimeout,omitempty"`

	// Engine-specific options (use sparingly)
	Options map[string]interface{} `json:"options,omitempty"`
}

// Normalized returns a copy with whitespace trimmed and the host reduced to a
// canonical form, so that equivalent configurations derive the same cache key.
func (c Config) Normalized() Config {
	c.Host = dbcapabilities.NormalizeHost(c.Host)
	c.Username = strings.TrimSpace(c.Username)
	c.DatabaseName = strings.TrimSpace(c.DatabaseName)
	c.FilePath = strings.TrimSpace(c.FilePath)
	return c
}

// Redacted returns a copy safe for logging, with the password masked.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "********"
	}
	return c
}
