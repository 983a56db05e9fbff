package sqlite

import (
	"context"
	"database/sql"

	"github.com/dbglass/dbglass/provider"
)

// rowSetFromRows drains a database/sql result into a fully-materialized
// RowSet. Byte slices are copied to strings; the driver reuses its buffers
// between scans.
func rowSetFromRows(rows *sql.Rows) (provider.RowSet, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return provider.RowSet{}, err
	}

	out := provider.RowSet{Columns: columns, Rows: []map[string]interface{}{}}
	values := make([]interface{}, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return provider.RowSet{}, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return provider.RowSet{}, err
	}
	out.RowCount = int64(len(out.Rows))
	return out, nil
}

// queryRowSet runs a row-returning statement and materializes the result.
func (p *Provider) queryRowSet(ctx context.Context, query string, args ...interface{}) (provider.RowSet, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return provider.RowSet{}, classifyError(err)
	}
	set, err := rowSetFromRows(rows)
	if err != nil {
		return provider.RowSet{}, classifyError(err)
	}
	return set, nil
}

// execRowSet runs a non-returning statement and reports the affected count.
func (p *Provider) execRowSet(ctx context.Context, query string, args ...interface{}) (provider.RowSet, error) {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return provider.RowSet{}, classifyError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return provider.RowSet{}, classifyError(err)
	}
	return provider.RowSet{Columns: []string{}, Rows: []map[string]interface{}{}, RowCount: affected}, nil
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
		return p.execRowSet(ctx, query, args...)
	})
}

// ExecuteQuery runs an arbitrary parameterized statement. Statement shape is
// detected on stripped text: row-returning statements are materialized,
// everything else reports the affected count.
func (p *Provider) ExecuteQuery(ctx context.Context, query string, args ...interface{}) *provider.Envelope[provider.RowSet] {
	return p.runRowSet(ctx, func(ctx context.Context) (provider.RowSet, error) {
		if query == "" {
			return provider.RowSet{}, provider.NewProviderError(provider.CodeValidationError, "query cannot be empty")
		}
		if isRowReturning(query) {
			return p.queryRowSet(ctx, query, args...)
		}
		return p.execRowSet(ctx, query, args...)
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
