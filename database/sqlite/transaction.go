package sqlite

import (
	"context"
	"database/sql"

	"github.com/dbglass/dbglass/provider"
)

// sqlTx adapts a database/sql transaction to the engine-agnostic statement
// surface.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, classifyError(err)
	}
	return affected, nil
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...interface{}) (*provider.RowSet, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyError(err)
	}
	set, err := rowSetFromRows(rows)
	if err != nil {
		return nil, classifyError(err)
	}
	return &set, nil
}

// Transaction runs fn inside BEGIN/COMMIT with ROLLBACK on error, retrying
// the whole body from the start on busy or locked conditions with
// exponential backoff. The body must be safe to re-run.
func (p *Provider) Transaction(ctx context.Context, maxRetries int, fn provider.TxFunc) *provider.Envelope[provider.TxResult] {
	return provider.Run(ctx, string(p.Type()), providerVersion,
		func(ctx context.Context) (provider.TxResult, error) {
			if err := p.requireConnected(); err != nil {
				return provider.TxResult{}, err
			}

			attempts, err := provider.RunWithRetry(ctx, maxRetries, isRetryable,
				func(ctx context.Context) error {
					tx, err := p.db.BeginTx(ctx, nil)
					if err != nil {
						return classifyError(err)
					}
					if err := fn(ctx, &sqlTx{tx: tx}); err != nil {
						_ = tx.Rollback()
						return err
					}
					if err := tx.Commit(); err != nil {
						_ = tx.Rollback()
						return classifyError(err)
					}
					return nil
				})
			if err != nil {
				return provider.TxResult{}, err
			}
			return provider.TxResult{Attempts: attempts}, nil
		})
}
