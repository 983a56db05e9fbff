package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbglass/dbglass/dbcapabilities"
	"github.com/dbglass/dbglass/provider"
)

// openTestDB connects an in-memory provider with a small schema: users with
// a unique name, orders referencing users.
func openTestDB(t *testing.T) provider.Provider {
	t.Helper()
	p, err := New(provider.Config{FilePath: ":memory:"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Connect(ctx))
	t.Cleanup(func() { p.Disconnect(ctx) })

	for _, ddl := range []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			age INTEGER,
			status TEXT DEFAULT 'active'
		)`,
		`CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			total REAL
		)`,
		`CREATE INDEX idx_orders_user ON orders(user_id)`,
	} {
		env := p.ExecuteQuery(ctx, ddl)
		require.True(t, env.IsSuccess(), "ddl failed: %+v", env.Errors)
	}
	return p
}

func TestNewValidation(t *testing.T) {
	_, err := New(provider.Config{})
	assert.ErrorIs(t, err, provider.ErrInvalidConfiguration)
}

func TestFileMustExist(t *testing.T) {
	p, err := New(provider.Config{
		FilePath:      filepath.Join(t.TempDir(), "missing.db"),
		FileMustExist: true,
	})
	require.NoError(t, err)

	err = p.Connect(context.Background())
	require.Error(t, err)

	var connErr *provider.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestRegistration(t *testing.T) {
	reg := Registration()
	assert.Equal(t, dbcapabilities.SQLite, reg.Type)
	assert.Equal(t, providerVersion, reg.Version)
	assert.Contains(t, reg.Capabilities, dbcapabilities.FeatureVacuum)
	assert.NotContains(t, reg.Capabilities, dbcapabilities.FeatureAdminDatabase)
}

func TestRowCRUD(t *testing.T) {
	p := openTestDB(t)
	ctx := context.Background()

	t.Run("insert returns the stored row with defaults applied", func(t *testing.T) {
		env := p.InsertRow(ctx, provider.RowInsertOptions{
			Table: "users",
			Data:  map[string]interface{}{"name": "ada", "age": 36},
		})
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		require.Len(t, env.Data.Rows, 1)
		row := env.Data.Rows[0]
		assert.Equal(t, "ada", row["name"])
		assert.Equal(t, "active", row["status"])
		assert.NotNil(t, row["id"])
	})

	t.Run("duplicate insert classifies as duplicate key", func(t *testing.T) {
		env := p.InsertRow(ctx, provider.RowInsertOptions{
			Table: "users",
			Data:  map[string]interface{}{"name": "ada"},
		})
		require.True(t, env.IsError())
		assert.Equal(t, provider.CodeDuplicateKey, env.FirstError().Code)
	})

	t.Run("select with filters and ordering", func(t *testing.T) {
		for _, name := range []string{"grace", "alan"} {
			env := p.InsertRow(ctx, provider.RowInsertOptions{
				Table: "users",
				Data:  map[string]interface{}{"name": name, "age": 40},
			})
			require.True(t, env.IsSuccess())
		}

		env := p.SelectRows(ctx, provider.RowQueryOptions{
			Table:   "users",
			Columns: []string{"name"},
			Where:   []provider.RowFilter{{Column: "age", Operator: provider.OpGreaterOrEqual, Value: 36}},
			OrderBy: []provider.SortKey{{Column: "name"}},
		})
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		require.Equal(t, int64(3), env.Data.RowCount)
		assert.Equal(t, "ada", env.Data.Rows[0]["name"])
		assert.Equal(t, "alan", env.Data.Rows[1]["name"])
	})

	t.Run("case-insensitive match via ILIKE rewrite", func(t *testing.T) {
		env := p.SelectRows(ctx, provider.RowQueryOptions{
			Table: "users",
			Where: []provider.RowFilter{{Column: "name", Operator: provider.OpILike, Value: "ADA"}},
		})
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		assert.Equal(t, int64(1), env.Data.RowCount)
	})

	t.Run("update without filters is rejected", func(t *testing.T) {
		env := p.UpdateRows(ctx, provider.RowUpdateOptions{
			Table: "users",
			Set:   map[string]interface{}{"status": "blocked"},
		})
		require.True(t, env.IsError())
		assert.Equal(t, provider.CodeValidationError, env.FirstError().Code)
	})

	t.Run("update returns the rows as stored", func(t *testing.T) {
		env := p.UpdateRows(ctx, provider.RowUpdateOptions{
			Table: "users",
			Set:   map[string]interface{}{"status": "retired"},
			Where: []provider.RowFilter{{Column: "name", Operator: provider.OpEqual, Value: "grace"}},
		})
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		require.Equal(t, int64(1), env.Data.RowCount)
		assert.Equal(t, "retired", env.Data.Rows[0]["status"])
	})

	t.Run("delete without filters is rejected", func(t *testing.T) {
		env := p.DeleteRows(ctx, provider.RowDeleteOptions{Table: "users"})
		require.True(t, env.IsError())
		assert.Equal(t, provider.CodeValidationError, env.FirstError().Code)
	})

	t.Run("delete reports the affected count", func(t *testing.T) {
		env := p.DeleteRows(ctx, provider.RowDeleteOptions{
			Table: "users",
			Where: []provider.RowFilter{{Column: "name", Operator: provider.OpIn, Value: []string{"grace", "alan"}}},
		})
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		assert.Equal(t, int64(2), env.Data.RowCount)
	})
}

func TestExecuteQueryShapes(t *testing.T) {
	p := openTestDB(t)
	ctx := context.Background()

	env := p.ExecuteQuery(ctx, "INSERT INTO users (name) VALUES (?)", "ada")
	require.True(t, env.IsSuccess(), "%+v", env.Errors)
	assert.Equal(t, int64(1), env.Data.RowCount)
	assert.Empty(t, env.Data.Rows)

	env = p.ExecuteQuery(ctx, "SELECT name FROM users")
	require.True(t, env.IsSuccess(), "%+v", env.Errors)
	require.Len(t, env.Data.Rows, 1)
	assert.Equal(t, "ada", env.Data.Rows[0]["name"])

	env = p.ExecuteQuery(ctx, "DELETE FROM users WHERE name = ? RETURNING id", "ada")
	require.True(t, env.IsSuccess(), "%+v", env.Errors)
	assert.Len(t, env.Data.Rows, 1)
}

func TestMetadataIntrospection(t *testing.T) {
	p := openTestDB(t)
	ctx := context.Background()

	t.Run("schemas", func(t *testing.T) {
		env := p.ListSchemas(ctx)
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		require.NotEmpty(t, *env.Data)
		assert.Equal(t, "main", (*env.Data)[0].Name)
		assert.True(t, (*env.Data)[0].Default)
	})

	t.Run("tables", func(t *testing.T) {
		env := p.ListTables(ctx, "")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		names := make([]string, 0, len(*env.Data))
		for _, tbl := range *env.Data {
			names = append(names, tbl.Name)
		}
		assert.Equal(t, []string{"orders", "users"}, names)
	})

	t.Run("columns with key membership", func(t *testing.T) {
		env := p.Columns(ctx, "", "orders")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)

		byName := map[string]provider.ColumnInfo{}
		for _, c := range *env.Data {
			byName[c.Name] = c
		}
		assert.True(t, byName["id"].IsPrimaryKey)
		assert.True(t, byName["user_id"].IsForeignKey)
		assert.False(t, byName["user_id"].IsNullable)
		assert.True(t, byName["total"].IsNullable)
	})

	t.Run("column defaults", func(t *testing.T) {
		env := p.Columns(ctx, "", "users")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		for _, c := range *env.Data {
			if c.Name == "status" {
				require.NotNil(t, c.Default)
				assert.Equal(t, "'active'", *c.Default)
			}
		}
	})

	t.Run("indexes", func(t *testing.T) {
		env := p.Indexes(ctx, "", "orders")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)

		var found bool
		for _, idx := range *env.Data {
			if idx.Name == "idx_orders_user" {
				found = true
				assert.Equal(t, []string{"user_id"}, idx.Columns)
				assert.False(t, idx.IsUnique)
				assert.Equal(t, "CREATE INDEX idx_orders_user ON orders(user_id)", idx.Definition)
			}
		}
		assert.True(t, found)
	})

	t.Run("auto-indexes have no stored definition", func(t *testing.T) {
		env := p.Indexes(ctx, "", "users")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		require.NotEmpty(t, *env.Data)
		for _, idx := range *env.Data {
			assert.Empty(t, idx.Definition, idx.Name)
		}
	})

	t.Run("constraints synthesized from pragmas", func(t *testing.T) {
		env := p.Constraints(ctx, "", "orders")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)

		byType := map[provider.ConstraintType]provider.ConstraintInfo{}
		for _, c := range *env.Data {
			byType[c.Type] = c
		}

		pk, ok := byType[provider.ConstraintPrimaryKey]
		require.True(t, ok)
		assert.Equal(t, []string{"id"}, pk.Columns)

		fk, ok := byType[provider.ConstraintForeignKey]
		require.True(t, ok)
		assert.Equal(t, []string{"user_id"}, fk.Columns)
		assert.Equal(t, "users", fk.ReferencedTable)
		assert.Equal(t, []string{"id"}, fk.ReferencedColumns)
		assert.Equal(t, "CASCADE", fk.DeleteRule)
	})

	t.Run("unique constraint from unique index", func(t *testing.T) {
		env := p.Constraints(ctx, "", "users")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)

		var unique *provider.ConstraintInfo
		for i := range *env.Data {
			if (*env.Data)[i].Type == provider.ConstraintUnique {
				unique = &(*env.Data)[i]
			}
		}
		require.NotNil(t, unique)
		assert.Equal(t, []string{"name"}, unique.Columns)
	})

	t.Run("table structure joins all three", func(t *testing.T) {
		env := p.TableStructure(ctx, "", "orders")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		assert.Equal(t, "orders", env.Data.Table)
		assert.NotEmpty(t, env.Data.Columns)
		assert.NotEmpty(t, env.Data.Indexes)
		assert.NotEmpty(t, env.Data.Constraints)
	})
}

func TestTransaction(t *testing.T) {
	p := openTestDB(t)
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		env := p.Transaction(ctx, 0, func(ctx context.Context, tx provider.Tx) error {
			if _, err := tx.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "ada"); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO orders (user_id, total) VALUES (1, 9.5)")
			return err
		})
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
		assert.Equal(t, 1, env.Data.Attempts)

		sel := p.SelectRows(ctx, provider.RowQueryOptions{Table: "orders"})
		require.True(t, sel.IsSuccess())
		assert.Equal(t, int64(1), sel.Data.RowCount)
	})

	t.Run("rollback on error", func(t *testing.T) {
		env := p.Transaction(ctx, 0, func(ctx context.Context, tx provider.Tx) error {
			if _, err := tx.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "grace"); err != nil {
				return err
			}
			// Duplicate of an existing row; the whole body must roll back.
			_, err := tx.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "ada")
			return err
		})
		require.True(t, env.IsError())
		assert.Equal(t, provider.CodeDuplicateKey, env.FirstError().Code)

		sel := p.SelectRows(ctx, provider.RowQueryOptions{
			Table: "users",
			Where: []provider.RowFilter{{Column: "name", Operator: provider.OpEqual, Value: "grace"}},
		})
		require.True(t, sel.IsSuccess())
		assert.Equal(t, int64(0), sel.Data.RowCount)
	})

	t.Run("queries run inside the transaction", func(t *testing.T) {
		env := p.Transaction(ctx, 0, func(ctx context.Context, tx provider.Tx) error {
			set, err := tx.Query(ctx, "SELECT name FROM users ORDER BY name")
			if err != nil {
				return err
			}
			assert.Equal(t, int64(1), set.RowCount)
			return nil
		})
		require.True(t, env.IsSuccess(), "%+v", env.Errors)
	})
}

func TestTransactionRetriesOnBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retry.db")
	p, err := New(provider.Config{FilePath: path})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Connect(ctx))
	defer p.Disconnect(ctx)

	env := p.ExecuteQuery(ctx, "CREATE TABLE events (id INTEGER PRIMARY KEY, note TEXT)")
	require.True(t, env.IsSuccess(), "%+v", env.Errors)

	// Hold the write lock from a second handle just long enough to capture a
	// real busy failure, then release it.
	blocker, err := sql.Open(driverName, path)
	require.NoError(t, err)
	defer blocker.Close()
	bconn, err := blocker.Conn(ctx)
	require.NoError(t, err)
	_, err = bconn.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)

	_, busyErr := p.(*Provider).db.ExecContext(ctx, "INSERT INTO events (note) VALUES ('blocked')")
	require.Error(t, busyErr)
	require.True(t, isRetryable(busyErr))

	_, err = bconn.ExecContext(ctx, "ROLLBACK")
	require.NoError(t, err)
	require.NoError(t, bconn.Close())

	// Every attempt inserts before reporting the busy condition, so only the
	// committed attempt's row may survive.
	attempts := 0
	txEnv := p.Transaction(ctx, 3, func(ctx context.Context, tx provider.Tx) error {
		attempts++
		if _, err := tx.Exec(ctx, "INSERT INTO events (note) VALUES (?)", fmt.Sprintf("attempt %d", attempts)); err != nil {
			return err
		}
		if attempts < 3 {
			return busyErr
		}
		return nil
	})
	require.True(t, txEnv.IsSuccess(), "%+v", txEnv.Errors)
	assert.Equal(t, 3, txEnv.Data.Attempts)
	assert.Equal(t, 3, attempts)

	sel := p.SelectRows(ctx, provider.RowQueryOptions{Table: "events"})
	require.True(t, sel.IsSuccess(), "%+v", sel.Errors)
	require.Equal(t, int64(1), sel.Data.RowCount)
	assert.Equal(t, "attempt 3", sel.Data.Rows[0]["note"])
}

func TestMaintenance(t *testing.T) {
	ctx := context.Background()

	t.Run("in-memory", func(t *testing.T) {
		p := openTestDB(t)
		m := p.Maintenance()

		ver := m.EngineVersion(ctx)
		require.True(t, ver.IsSuccess(), "%+v", ver.Errors)
		assert.NotEmpty(t, ver.Data.Version)

		size := m.FileSize(ctx)
		require.True(t, size.IsSuccess(), "%+v", size.Errors)
		assert.Equal(t, int64(0), size.Data.SizeBytes)

		vac := m.Vacuum(ctx)
		require.True(t, vac.IsSuccess(), "%+v", vac.Errors)

		integ := m.IntegrityCheck(ctx)
		require.True(t, integ.IsSuccess(), "%+v", integ.Errors)
		assert.True(t, integ.Data.OK)
	})

	t.Run("file-backed size", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		p, err := New(provider.Config{FilePath: path})
		require.NoError(t, err)
		require.NoError(t, p.Connect(ctx))
		defer p.Disconnect(ctx)

		env := p.ExecuteQuery(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
		require.True(t, env.IsSuccess(), "%+v", env.Errors)

		size := p.Maintenance().FileSize(ctx)
		require.True(t, size.IsSuccess(), "%+v", size.Errors)
		assert.Equal(t, path, size.Data.Path)
		assert.Greater(t, size.Data.SizeBytes, int64(0))
	})
}

func TestAdminUnsupported(t *testing.T) {
	p := openTestDB(t)

	env := p.Admin().CreateDatabase(context.Background(), "other", provider.CreateDatabaseOptions{})
	require.True(t, env.IsError())
	assert.Equal(t, provider.CodeCapabilityNotSupported, env.FirstError().Code)
	assert.True(t, provider.IsUnsupportedOperator(p.Admin()))
}

func TestForeignKeyEnforcement(t *testing.T) {
	p := openTestDB(t)
	ctx := context.Background()

	env := p.InsertRow(ctx, provider.RowInsertOptions{
		Table: "orders",
		Data:  map[string]interface{}{"user_id": 999, "total": 1.0},
	})
	require.True(t, env.IsError())
	assert.Equal(t, provider.CodeForeignKeyViolation, env.FirstError().Code)
}

func TestOperationsFailFastWhenDisconnected(t *testing.T) {
	p, err := New(provider.Config{FilePath: ":memory:"})
	require.NoError(t, err)

	env := p.SelectRows(context.Background(), provider.RowQueryOptions{Table: "users"})
	require.True(t, env.IsError())
	assert.Equal(t, provider.CodeConnectionFailed, env.FirstError().Code)
}
