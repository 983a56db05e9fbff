package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbglass/dbglass/dbcapabilities"
	"github.com/dbglass/dbglass/provider"
)

func TestNewValidation(t *testing.T) {
	t.Run("host is required", func(t *testing.T) {
		_, err := New(provider.Config{DatabaseName: "app"})
		assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
	})

	t.Run("database name is required", func(t *testing.T) {
		_, err := New(provider.Config{Host: "localhost"})
		assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
	})

	t.Run("defaults applied", func(t *testing.T) {
		p, err := New(provider.Config{Host: "127.0.0.1", DatabaseName: "app"})
		require.NoError(t, err)
		cfg := p.Config()
		assert.Equal(t, 5432, cfg.Port)
		assert.Equal(t, "localhost", cfg.Host)
		assert.NotEmpty(t, p.ID())
		assert.False(t, p.IsConnected())
	})
}

func TestConnString(t *testing.T) {
	t.Run("ssl disabled by default", func(t *testing.T) {
		p, err := New(provider.Config{Host: "db.internal", Port: 5433, Username: "u", Password: "pw", DatabaseName: "app"})
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:pw@db.internal:5433/app?sslmode=disable", p.(*Provider).connString())
	})

	t.Run("ssl with certificates", func(t *testing.T) {
		p, err := New(provider.Config{
			Host: "db.internal", Username: "u", DatabaseName: "app",
			SSL: true, SSLMode: "verify-full",
			SSLCert: "/c.pem", SSLKey: "/k.pem", SSLRootCert: "/ca.pem",
		})
		require.NoError(t, err)
		assert.Equal(t,
			"postgres://u:@db.internal:5432/app?sslmode=verify-full&sslcert=/c.pem&sslkey=/k.pem&sslrootcert=/ca.pem",
			p.(*Provider).connString())
	})

	t.Run("ssl defaults to require", func(t *testing.T) {
		p, err := New(provider.Config{Host: "db.internal", Username: "u", DatabaseName: "app", SSL: true})
		require.NoError(t, err)
		assert.Contains(t, p.(*Provider).connString(), "sslmode=require")
	})
}

func TestRegistration(t *testing.T) {
	reg := Registration()
	assert.Equal(t, dbcapabilities.PostgreSQL, reg.Type)
	assert.Equal(t, providerVersion, reg.Version)
	assert.NotNil(t, reg.Factory)
	assert.Contains(t, reg.Capabilities, dbcapabilities.FeatureAdminDatabase)
	assert.NotContains(t, reg.Capabilities, dbcapabilities.FeatureVacuum)
}

func TestCapabilities(t *testing.T) {
	p, err := New(provider.Config{Host: "localhost", DatabaseName: "app"})
	require.NoError(t, err)

	caps := p.Capabilities()
	assert.Len(t, caps.Capabilities, len(dbcapabilities.AllCapabilities()))
	assert.True(t, p.HasCapability(dbcapabilities.TransactionRetry))
	assert.True(t, p.HasCapability(dbcapabilities.FeatureTerminateConnections))
	assert.False(t, p.HasCapability(dbcapabilities.FeatureWAL))
}

func TestOperationsFailFastWhenDisconnected(t *testing.T) {
	p, err := New(provider.Config{Host: "localhost", DatabaseName: "app"})
	require.NoError(t, err)
	ctx := context.Background()

	env := p.SelectRows(ctx, provider.RowQueryOptions{Table: "users"})
	require.True(t, env.IsError())
	assert.Equal(t, provider.CodeConnectionFailed, env.FirstError().Code)

	tx := p.Transaction(ctx, 0, func(ctx context.Context, tx provider.Tx) error { return nil })
	require.True(t, tx.IsError())
	assert.Equal(t, provider.CodeConnectionFailed, tx.FirstError().Code)

	meta := p.ListTables(ctx, "")
	require.True(t, meta.IsError())
	assert.Equal(t, provider.CodeConnectionFailed, meta.FirstError().Code)
}

func TestTestConnectionReportsInsideEnvelope(t *testing.T) {
	p, err := New(provider.Config{Host: "localhost", DatabaseName: "app"})
	require.NoError(t, err)

	env := p.TestConnection(context.Background())
	require.True(t, env.IsSuccess())
	require.NotNil(t, env.Data)
	assert.False(t, env.Data.Success)
	assert.Equal(t, "not connected", env.Data.Message)
}

func TestDisconnectIdempotent(t *testing.T) {
	p, err := New(provider.Config{Host: "localhost", DatabaseName: "app"})
	require.NoError(t, err)
	assert.NoError(t, p.Disconnect(context.Background()))
	assert.NoError(t, p.Disconnect(context.Background()))
}

func TestMaintenanceUnsupported(t *testing.T) {
	p, err := New(provider.Config{Host: "localhost", DatabaseName: "app"})
	require.NoError(t, err)

	env := p.Maintenance().Vacuum(context.Background())
	require.True(t, env.IsError())
	assert.Equal(t, provider.CodeCapabilityNotSupported, env.FirstError().Code)
	assert.True(t, provider.IsUnsupportedOperator(p.Maintenance()))
}

func TestDestructiveGuards(t *testing.T) {
	p, err := New(provider.Config{Host: "localhost", DatabaseName: "app"})
	require.NoError(t, err)
	// A pgx pool is lazy: no connection is attempted until first use, so the
	// validation path can be exercised without a server.
	pool, err := pgxpool.New(context.Background(), "postgres://u:pw@localhost:5432/app")
	require.NoError(t, err)
	defer pool.Close()
	p.(*Provider).pool = pool
	p.(*Provider).connected.Store(true)

	t.Run("delete without filters is rejected before any SQL", func(t *testing.T) {
		env := p.DeleteRows(context.Background(), provider.RowDeleteOptions{Table: "users"})
		require.True(t, env.IsError())
		assert.Equal(t, provider.CodeValidationError, env.FirstError().Code)
	})

	t.Run("update without filters is rejected before any SQL", func(t *testing.T) {
		env := p.UpdateRows(context.Background(), provider.RowUpdateOptions{
			Table: "users",
			Set:   map[string]interface{}{"name": "x"},
		})
		require.True(t, env.IsError())
		assert.Equal(t, provider.CodeValidationError, env.FirstError().Code)
	})
}
