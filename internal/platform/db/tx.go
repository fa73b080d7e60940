package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

// DBTxKey holds the request-scoped transaction, when one is open.
const DBTxKey contextKey = "db_tx"

// TxFromContext retrieves the request-scoped transaction from context.
// Repositories check this first so that a service can wrap a consent check
// and the writes that depend on it in a single transaction.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// WithTx runs fn inside a transaction stored in the context. If a transaction
// is already open on the context, fn joins it and commit/rollback is left to
// the outer caller. Serializable isolation is used so that concurrent
// grant/revoke and check-then-write sequences for the same patient do not
// interleave.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
