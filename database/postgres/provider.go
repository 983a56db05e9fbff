// Package postgres implements the PostgreSQL provider on top of a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dbglass/dbglass/dbcapabilities"
	"github.com/dbglass/dbglass/provider"
)

const providerVersion = "1.0.0"

// supportedCapabilities is everything the PostgreSQL adapter implements.
// File-level maintenance is a file-engine surface and stays unsupported.
var supportedCapabilities = []dbcapabilities.CapabilityID{
	dbcapabilities.ConnectionConnect,
	dbcapabilities.ConnectionPooling,
	dbcapabilities.ConnectionSSL,
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
	dbcapabilities.FeatureAdminDatabase,
	dbcapabilities.FeatureTerminateConnections,
}

// Registration describes the adapter for a provider registry.
func Registration() provider.Registration {
	return provider.Registration{
		Type:         dbcapabilities.PostgreSQL,
		Name:         "PostgreSQL",
		Description:  "PostgreSQL provider backed by a pgx connection pool",
		Version:      providerVersion,
		Capabilities: supportedCapabilities,
		Factory:      New,
	}
}

// Provider is a stateful PostgreSQL connection holder. It is created
// disconnected; Connect establishes the pool and Disconnect releases it.
type Provider struct {
	id        string
	cfg       provider.Config
	pool      *pgxpool.Pool
	connected atomic.Bool
	caps      dbcapabilities.CapabilityMap
}

// New builds a disconnected provider instance from a unified configuration.
func New(cfg provider.Config) (provider.Provider, error) {
	cfg = cfg.Normalized()
	if cfg.Host == "" {
		return nil, provider.NewConfigurationError(dbcapabilities.PostgreSQL, "host", "host cannot be empty")
	}
	if cfg.DatabaseName == "" {
		return nil, provider.NewConfigurationError(dbcapabilities.PostgreSQL, "databaseName", "database name cannot be empty")
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	return &Provider{
		id:   cfg.ID,
		cfg:  cfg,
		caps: dbcapabilities.BuildCapabilityMap(dbcapabilities.PostgreSQL, supportedCapabilities),
	}, nil
}

func (p *Provider) ID() string { return p.id }
func (p *Provider) Type() dbcapabilities.DatabaseID { return dbcapabilities.PostgreSQL }
func (p *Provider) Version() string { return providerVersion }
func (p *Provider) Config() provider.Config { return p.cfg }
func (p *Provider) IsConnected() bool { return p.connected.Load() }

// Capabilities returns the total capability map for this adapter.
func (p *Provider) Capabilities() dbcapabilities.CapabilityMap { return p.caps }

func (p *Provider) HasCapability(id dbcapabilities.CapabilityID) bool {
	return p.caps.Has(id)
}

// connString builds the pgx connection URL from the unified configuration.
func (p *Provider) connString() string {
	var b strings.Builder

	fmt.Fprintf(&b, "postgres://%s:%s@%s:%d/%s",
		p.cfg.Username,
		p.cfg.Password,
		p.cfg.Host,
		p.cfg.Port,
		p.cfg.DatabaseName)

	if p.cfg.SSL {
		sslMode := p.cfg.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}
		fmt.Fprintf(&b, "?sslmode=%s", sslMode)

		if p.cfg.SSLCert != "" && p.cfg.SSLKey != "" {
			fmt.Fprintf(&b, "&sslcert=%s&sslkey=%s", p.cfg.SSLCert, p.cfg.SSLKey)
		}
		if p.cfg.SSLRootCert != "" {
			fmt.Fprintf(&b, "&sslrootcert=%s", p.cfg.SSLRootCert)
		}
	} else {
		b.WriteString("?sslmode=disable")
	}

	return b.String()
}

// Connect establishes the connection pool and verifies it with a ping.
// Connecting an already-connected provider is a no-op.
func (p *Provider) Connect(ctx context.Context) error {
	if p.connected.Load() {
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(p.connString())
	if err != nil {
		return provider.NewConfigurationError(dbcapabilities.PostgreSQL, "connection", err.Error())
	}
	if p.cfg.MaxConns > 0 {
		poolCfg.MaxConns = p.cfg.MaxConns
	}
	if p.cfg.MinConns > 0 {
		poolCfg.MinConns = p.cfg.MinConns
	}
	if p.cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = p.cfg.ConnectTimeout
	}
	if p.cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = p.cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return provider.NewConnectionError(dbcapabilities.PostgreSQL, p.target(), err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return provider.NewConnectionError(dbcapabilities.PostgreSQL, p.target(), classifyError(err))
	}

	p.pool = pool
	p.connected.Store(true)
	return nil
}

// Disconnect closes the pool. Disconnecting an already-disconnected provider
// is a no-op.
func (p *Provider) Disconnect(ctx context.Context) error {
	if !p.connected.Load() {
		return nil
	}
	p.connected.Store(false)
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

// TestConnection probes liveness. Connection failure is reported inside a
// successful envelope; only the probe result differs.
func (p *Provider) TestConnection(ctx context.Context) *provider.Envelope[provider.TestConnectionResult] {
	start := time.Now()
	result := provider.TestConnectionResult{Success: true, Message: "connection ok"}

	if !p.connected.Load() || p.pool == nil {
		result.Success = false
		result.Message = "not connected"
	} else if err := p.pool.Ping(ctx); err != nil {
		result.Success = false
		result.Message = err.Error()
	}
	result.Latency = time.Since(start)

	return provider.Success(result, string(dbcapabilities.PostgreSQL), providerVersion, result.Latency)
}

// Status reports liveness, the server version, and pool statistics.
func (p *Provider) Status(ctx context.Context) *provider.Envelope[provider.ProviderStatus] {
	return provider.Run(ctx, string(dbcapabilities.PostgreSQL), providerVersion,
		func(ctx context.Context) (provider.ProviderStatus, error) {
			status := provider.ProviderStatus{Connected: p.connected.Load()}
			if !status.Connected || p.pool == nil {
				return status, nil
			}

			stat := p.pool.Stat()
			status.TotalConns = stat.TotalConns()
			status.IdleConns = stat.IdleConns()
			status.AcquiredConns = stat.AcquiredConns()
			status.MaxConns = stat.MaxConns()

			var version string
			if err := p.pool.QueryRow(ctx, "SELECT version()").Scan(&version); err == nil {
				status.ServerVersion = version
			}
			return status, nil
		})
}

// requireConnected fails fast before any query path touches the pool.
func (p *Provider) requireConnected() error {
	if !p.connected.Load() || p.pool == nil {
		return provider.ErrNotConnected
	}
	return nil
}

func (p *Provider) target() string {
	return fmt.Sprintf("%s:%d/%s", p.cfg.Host, p.cfg.Port, p.cfg.DatabaseName)
}

// Admin returns the cross-database administration surface.
func (p *Provider) Admin() provider.AdminOperator {
	return &AdminOps{p: p}
}

// Maintenance is a file-engine surface; PostgreSQL rejects it.
func (p *Provider) Maintenance() provider.MaintenanceOperator {
	return provider.NewUnsupportedMaintenance(dbcapabilities.PostgreSQL, providerVersion)
}
