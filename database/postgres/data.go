package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dbglass/dbglass/provider"
)

// statementTimeoutSQL is the session SET issued before each statement when a
// per-query timeout is configured. A RESET pairs with it once the statement
// finishes, whatever the outcome.
func statementTimeoutSQL(d time.Duration) string {
	return fmt.Sprintf("SET statement_timeout = %d", d.Milliseconds())
}

// rowSetFromRows drains a pgx result into a fully-materialized RowSet.
func rowSetFromRows(rows pgx.Rows) (provider.RowSet, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	out := provider.RowSet{Columns: columns, Rows: []map[string]interface{}{}}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return provider.RowSet{}, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return provider.RowSet{}, err
	}
	out.RowCount = int64(len(out.Rows))
	return out, nil
}

// withConn runs fn on a single acquired connection. When a statement timeout
// is configured it is set for the duration of fn and reset before the
// connection returns to the pool.
func (p *Provider) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return classifyError(err)
	}
	defer conn.Release()

	if p.cfg.StatementTimeout > 0 {
		if _, err := conn.Exec(ctx, statementTimeoutSQL(p.cfg.StatementTimeout)); err != nil {
			return classifyError(err)
		}
		defer conn.Exec(ctx, "RESET statement_timeout")
	}

	return fn(conn)
}

// queryRows runs a row-returning statement on a timeout-managed connection
// and hands each result row to scan.
func (p *Provider) queryRows(ctx context.Context, query string, scan func(rows pgx.Rows) error, args ...interface{}) error {
	return p.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return classifyError(err)
		}
		defer rows.Close()
		for rows.Next() {
			if err := scan(rows); err != nil {
				return classifyError(err)
			}
		}
		return classifyError(rows.Err())
	})
}

// exec runs a non-row-returning statement on a timeout-managed connection and
// reports the affected count.
func (p *Provider) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var affected int64
	err := p.withConn(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return classifyError(err)
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

// queryRowSet runs a row-returning statement and materializes the result.
func (p *Provider) queryRowSet(ctx context.Context, query string, args ...interface{}) (provider.RowSet, error) {
	var out provider.RowSet
	err := p.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return classifyError(err)
		}
		set, err := rowSetFromRows(rows)
		if err != nil {
			return classifyError(err)
		}
		out = set
		return nil
	})
	return out, err
}

// SelectRows queries rows from one table with filters, ordering, and paging.
func (p *Provider) SelectRows(ctx context.Context, opts provider.RowQueryOptions) *provider.Envelope[provider.RowSet] {
	return p.runRowSet(ctx, func(ctx context.Context) (provider.RowSet, error) {
		if opts.Table == "" {
			return provider.RowSet{}, provider.NewProviderError(provider.CodeValidationError, "table cannot be empty")
		}
		if err := provider.ValidateFilters(opts.Where); err != nil {
			return provider.RowSet{}, err
		}
		query, args := buildSelect(opts)
		return p.queryRowSet(ctx, query, args...)
	})
}

// InsertRow inserts one row and returns it as stored, defaults applied.
func (p *Provider) InsertRow(ctx context.Context, opts provider.RowInsertOptions) *provider.Envelope[provider.RowSet] {
	return p.runRowSet(ctx, func(ctx context.Context) (provider.RowSet, error) {
		if opts.Table == "" {
			return provider.RowSet{}, provider.NewProviderError(provider.CodeValidationError, "table cannot be empty")
		}
		if len(opts.Data) == 0 {
			return provider.RowSet{}, provider.NewProviderError(provider.CodeValidationError, "insert data cannot be empty")
		}
		query, args := buildInsert(opts)
		return p.queryRowSet(ctx, query, args...)
	})
}

// UpdateRows updates matching rows and returns them as stored. An update
// without filters is rejected before any SQL is built.
func (p *Provider) UpdateRows(ctx context.Context, opts provider.RowUpdateOptions) *provider.Envelope[provider.RowSet] {
	return p.runRowSet(ctx, func(ctx context.Context) (provider.RowSet, error) {
		if opts.Table == "" {
			return provider.RowSet{}, provider.NewProviderError(provider.CodeValidationError, "table cannot be empty")
		}
		if len(opts.Set) == 0 {
			return provider.RowSet{}, provider.NewProviderError(provider.CodeValidationError, "update set cannot be empty")
		}
		if err := provider.RequireWhere(opts.Where, "update"); err != nil {
			return provider.RowSet{}, err
		}
		query, args := buildUpdate(opts)
		return p.queryRowSet(ctx, query, args...)
	})
}

// DeleteRows deletes matching rows and reports the affected count. A delete
// without filters is rejected before any SQL is built.
func (p *Provider) DeleteRows(ctx context.Context, opts provider.RowDeleteOptions) *provider.Envelope[provider.RowSet] {
	return p.runRowSet(ctx, func(ctx context.Context) (provider.RowSet, error) {
		if opts.Table == "" {
			return provider.RowSet{}, provider.NewProviderError(provider.CodeValidationError, "table cannot be empty")
		}
		if err := provider.RequireWhere(opts.Where, "delete"); err != nil {
			return provider.RowSet{}, err
		}
		query, args := buildDelete(opts)

		affected, err := p.exec(ctx, query, args...)
		if err != nil {
			return provider.RowSet{}, err
		}
		return provider.RowSet{Columns: []string{}, Rows: []map[string]interface{}{}, RowCount: affected}, nil
	})
}

// ExecuteQuery runs an arbitrary parameterized statement. Row-returning
// statements are materialized; others report the affected count.
func (p *Provider) ExecuteQuery(ctx context.Context, query string, args ...interface{}) *provider.Envelope[provider.RowSet] {
	return p.runRowSet(ctx, func(ctx context.Context) (provider.RowSet, error) {
		if query == "" {
			return provider.RowSet{}, provider.NewProviderError(provider.CodeValidationError, "query cannot be empty")
		}
		return p.queryRowSet(ctx, query, args...)
	})
}

// runRowSet is the envelope boundary for row operations: it checks the
// connection state, runs fn, and wraps the outcome.
func (p *Provider) runRowSet(ctx context.Context, fn func(ctx context.Context) (provider.RowSet, error)) *provider.Envelope[provider.RowSet] {
	return provider.Run(ctx, string(p.Type()), providerVersion,
		func(ctx context.Context) (provider.RowSet, error) {
			if err := p.requireConnected(); err != nil {
				return provider.RowSet{}, err
			}
			return fn(ctx)
		})
}
