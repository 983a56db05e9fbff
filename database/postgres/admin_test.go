package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbglass/dbglass/provider"
)

func TestValidateDatabaseName(t *testing.T) {
	t.Run("accepts identifier-shaped names", func(t *testing.T) {
		for _, name := range []string{"app", "my_db", "_private", "Db2024"} {
			assert.NoError(t, validateDatabaseName(name), name)
		}
	})

	t.Run("rejects everything else", func(t *testing.T) {
		for _, name := range []string{"", "9lives", "my-db", "app db", "db;drop", `x"y`} {
			err := validateDatabaseName(name)
			assert.Error(t, err, name)
			assert.Equal(t, provider.CodeValidationError, provider.CodeOf(err), name)
		}
	})
}

func TestRequireNotReserved(t *testing.T) {
	for _, name := range []string{"postgres", "template0", "template1", "POSTGRES"} {
		err := requireNotReserved(name)
		assert.Error(t, err, name)
		assert.Equal(t, provider.CodeValidationError, provider.CodeOf(err), name)
	}
	assert.NoError(t, requireNotReserved("app"))
}

func TestCreateDatabaseRejectsReservedNames(t *testing.T) {
	p, err := New(provider.Config{Host: "localhost", DatabaseName: "app"})
	require.NoError(t, err)
	// A pgx pool is lazy: no connection is attempted until first use, so a
	// rejected name must never reach the server.
	pool, err := pgxpool.New(context.Background(), "postgres://u:pw@localhost:5432/app")
	require.NoError(t, err)
	defer pool.Close()
	p.(*Provider).pool = pool
	p.(*Provider).connected.Store(true)

	for _, name := range []string{"postgres", "template0", "template1", "TEMPLATE1"} {
		env := p.Admin().CreateDatabase(context.Background(), name, provider.CreateDatabaseOptions{})
		require.True(t, env.IsError(), name)
		assert.Equal(t, provider.CodeValidationError, env.FirstError().Code, name)
	}
}

func TestAdminRequiresConnection(t *testing.T) {
	p, err := New(provider.Config{Host: "localhost", DatabaseName: "app"})
	assert.NoError(t, err)

	env := p.Admin().DropDatabase(context.Background(), "app", false)
	assert.True(t, env.IsError())
	assert.Equal(t, provider.CodeConnectionFailed, env.FirstError().Code)
}
