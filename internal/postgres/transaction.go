package postgres

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	ierr "github.com/covionstudio/billing/internal/errors"
)

type txKey struct{}

func txFromContext(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}

// WithTx runs fn inside a transaction. If a transaction is already
// bound to ctx, fn runs under a savepoint on that transaction: an
// error from fn rolls back only fn's own statements, and the outer
// transaction stays usable. Postgres otherwise aborts the whole
// transaction on the first failed statement, which would poison outer
// work after an expected error such as a unique-constraint conflict.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		return db.withSavepoint(ctx, tx, fn)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to begin transaction").
			Mark(ierr.ErrDatabase)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

var savepointSeq atomic.Uint64

func (db *DB) withSavepoint(ctx context.Context, tx *sqlx.Tx, fn func(ctx context.Context) error) error {
	name := fmt.Sprintf("sp_%d", savepointSeq.Add(1))

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create savepoint").
			Mark(ierr.ErrDatabase)
	}

	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			db.logger.Errorw("failed to rollback to savepoint", "savepoint", name, "error", rbErr)
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to release savepoint").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
