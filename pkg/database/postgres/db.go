package pg

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/retry"
	"github.com/tixchain/ticket-server/pkg/retry/backoff"
)

const (
	maxTxAttempts  = 5
	txRetryBackoff = 10 * time.Millisecond
	maxTxBackoff   = 250 * time.Millisecond
)

// ExecuteInTx runs fn inside a DB transaction, committing when fn succeeds and
// rolling back otherwise. Transactions aborted by serialization failures or
// deadlocks are retried from the start, so fn must be safe to re-run.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	_, err := retry.Retry(
		func() error {
			return executeOnce(ctx, db, isolation, fn)
		},
		retry.RetriableFunc(IsRetriableTxError),
		retry.Context(ctx),
		retry.Limit(maxTxAttempts),
		retry.BackoffWithJitter(backoff.BinaryExponential(txRetryBackoff), maxTxBackoff, 0.2),
	)
	return err
}

func executeOnce(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// Rollback releases the connection back to the pool.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrapf(err, "failed to rollback transaction: %s", rollbackErr.Error())
		}
		return err
	}
	return tx.Commit()
}
