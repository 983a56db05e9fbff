// Package sqlite implements the SQLite provider on top of database/sql with
// the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dbglass/dbglass/dbcapabilities"
	"github.com/dbglass/dbglass/provider"
)

const providerVersion = "1.0.0"

const driverName = "sqlite"

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// supportedCapabilities is everything the SQLite adapter implements.
// Cross-database administration is a server-engine surface and stays
// unsupported.
var supportedCapabilities = []dbcapabilities.CapabilityID{
	dbcapabilities.ConnectionConnect,
	dbcapabilities.MetadataDatabases,
	dbcapabilities.MetadataSchemas,
	dbcapabilities.MetadataTables,
	dbcapabilities.MetadataColumns,
	dbcapabilities.MetadataIndexes,
	dbcapabilities.MetadataConstraints,
	dbcapabilities.DataSelect,
	dbcapabilities.DataInsert,
	dbcapabilities.DataUpdate,
	dbcapabilities.DataDelete,
	dbcapabilities.DataRawQuery,
	dbcapabilities.TransactionBasic,
	dbcapabilities.TransactionSavepoints,
	dbcapabilities.TransactionRetry,
	dbcapabilities.FeatureVacuum,
	dbcapabilities.FeatureIntegrityCheck,
	dbcapabilities.FeatureWAL,
}

// Registration describes the adapter for a provider registry.
func Registration() provider.Registration {
	return provider.Registration{
		Type:         dbcapabilities.SQLite,
		Name:         "SQLite",
		Description:  "SQLite provider backed by the pure-Go modernc driver",
		Version:      providerVersion,
		Capabilities: supportedCapabilities,
		Factory:      New,
	}
}

// Provider is a stateful SQLite connection holder over one database file or
// an in-memory database.
type Provider struct {
	id        string
	cfg       provider.Config
	db        *sql.DB
	connected atomic.Bool
	caps      dbcapabilities.CapabilityMap
}

// New builds a disconnected provider instance from a unified configuration.
func New(cfg provider.Config) (provider.Provider, error) {
	cfg = cfg.Normalized()
	if cfg.FilePath == "" {
		return nil, provider.NewConfigurationError(dbcapabilities.SQLite, "filePath", "file path cannot be empty")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	return &Provider{
		id:   cfg.ID,
		cfg:  cfg,
		caps: dbcapabilities.BuildCapabilityMap(dbcapabilities.SQLite, supportedCapabilities),
	}, nil
}

func (p *Provider) ID() string { return p.id }
func (p *Provider) Type() dbcapabilities.DatabaseID { return dbcapabilities.SQLite }
func (p *Provider) Version() string { return providerVersion }
func (p *Provider) Config() provider.Config { return p.cfg }
func (p *Provider) IsConnected() bool { return p.connected.Load() }

// Capabilities returns the total capability map for this adapter.
func (p *Provider) Capabilities() dbcapabilities.CapabilityMap { return p.caps }

func (p *Provider) HasCapability(id dbcapabilities.CapabilityID) bool {
	return p.caps.Has(id)
}

func (p *Provider) inMemory() bool {
	return p.cfg.FilePath == memoryPath
}

// Connect opens the database, pins it to a single pooled connection so
// session PRAGMAs stick, and applies the journal and enforcement defaults.
// Connecting an already-connected provider is a no-op.
func (p *Provider) Connect(ctx context.Context) error {
	if p.connected.Load() {
		return nil
	}

	if p.cfg.FileMustExist && !p.inMemory() {
		if _, err := os.Stat(p.cfg.FilePath); err != nil {
			return provider.NewConnectionError(dbcapabilities.SQLite, p.cfg.FilePath,
				fmt.Errorf("database file does not exist: %w", err))
		}
	}

	db, err := sql.Open(driverName, p.cfg.FilePath)
	if err != nil {
		return provider.NewConnectionError(dbcapabilities.SQLite, p.cfg.FilePath, err)
	}
	// One connection keeps session PRAGMAs in effect and serializes writers,
	// which SQLite requires anyway.
	db.SetMaxOpenConns(1)

	if err := p.applyPragmas(ctx, db); err != nil {
		db.Close()
		return provider.NewConnectionError(dbcapabilities.SQLite, p.cfg.FilePath, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return provider.NewConnectionError(dbcapabilities.SQLite, p.cfg.FilePath, classifyError(err))
	}

	p.db = db
	p.connected.Store(true)
	return nil
}

func (p *Provider) applyPragmas(ctx context.Context, db *sql.DB) error {
	// WAL is pointless for in-memory databases.
	if !p.cfg.DisableWAL && !p.inMemory() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			return fmt.Errorf("enabling WAL: %w", err)
		}
	}
	if !p.cfg.DisableForeignKeys {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("enabling foreign keys: %w", err)
		}
	}
	if p.cfg.BusyTimeout > 0 {
		if _, err := db.ExecContext(ctx,
			fmt.Sprintf("PRAGMA busy_timeout = %d", p.cfg.BusyTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("setting busy timeout: %w", err)
		}
	}
	return nil
}

// Disconnect closes the database. Disconnecting an already-disconnected
// provider is a no-op.
func (p *Provider) Disconnect(ctx context.Context) error {
	if !p.connected.Load() {
		return nil
	}
	p.connected.Store(false)
	if p.db != nil {
		err := p.db.Close()
		p.db = nil
		return err
	}
	return nil
}

// TestConnection probes liveness. Connection failure is reported inside a
// successful envelope; only the probe result differs.
func (p *Provider) TestConnection(ctx context.Context) *provider.Envelope[provider.TestConnectionResult] {
	start := time.Now()
	result := provider.TestConnectionResult{Success: true, Message: "connection ok"}

	if !p.connected.Load() || p.db == nil {
		result.Success = false
		result.Message = "not connected"
	} else if err := p.db.PingContext(ctx); err != nil {
		result.Success = false
		result.Message = err.Error()
	}
	result.Latency = time.Since(start)

	return provider.Success(result, string(dbcapabilities.SQLite), providerVersion, result.Latency)
}

// Status reports liveness and the engine version. SQLite has no server-side
// pool, so the connection counters stay zero.
func (p *Provider) Status(ctx context.Context) *provider.Envelope[provider.ProviderStatus] {
	return provider.Run(ctx, string(dbcapabilities.SQLite), providerVersion,
		func(ctx context.Context) (provider.ProviderStatus, error) {
			status := provider.ProviderStatus{Connected: p.connected.Load()}
			if !status.Connected || p.db == nil {
				return status, nil
			}
			status.MaxConns = 1

			var version string
			if err := p.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err == nil {
				status.ServerVersion = version
			}
			return status, nil
		})
}

// requireConnected fails fast before any query path touches the database.
func (p *Provider) requireConnected() error {
	if !p.connected.Load() || p.db == nil {
		return provider.ErrNotConnected
	}
	return nil
}

// Admin is a server-engine surface; SQLite rejects it.
func (p *Provider) Admin() provider.AdminOperator {
	return provider.NewUnsupportedAdmin(dbcapabilities.SQLite, providerVersion)
}

// Maintenance returns the file-level maintenance surface.
func (p *Provider) Maintenance() provider.MaintenanceOperator {
	return &MaintenanceOps{p: p}
}
