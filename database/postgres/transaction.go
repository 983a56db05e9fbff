package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dbglass/dbglass/provider"
)

// pgxTx adapts a pgx transaction to the engine-agnostic statement surface.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, classifyError(err)
	}
	return tag.RowsAffected(), nil
}

func (t *pgxTx) Query(ctx context.Context, query string, args ...interface{}) (*provider.RowSet, error) {
	rows, err := t.tx.Query(ctx, query, args...)
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
// the whole body from the start on transient failures with exponential
// backoff. The body must be safe to re-run.
func (p *Provider) Transaction(ctx context.Context, maxRetries int, fn provider.TxFunc) *provider.Envelope[provider.TxResult] {
	return provider.Run(ctx, string(p.Type()), providerVersion,
		func(ctx context.Context) (provider.TxResult, error) {
			if err := p.requireConnected(); err != nil {
				return provider.TxResult{}, err
			}

			attempts, err := provider.RunWithRetry(ctx, maxRetries, isRetryable,
				func(ctx context.Context) error {
					tx, err := p.pool.Begin(ctx)
					if err != nil {
						return classifyError(err)
					}
					if err := fn(ctx, &pgxTx{tx: tx}); err != nil {
						_ = tx.Rollback(ctx)
						return err
					}
					if err := tx.Commit(ctx); err != nil {
						_ = tx.Rollback(ctx)
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
