package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
)

// Runner executes units of work inside database transactions. A unit of work
// started while ctx already carries a transaction joins it.
type Runner struct {
	db        *sql.DB
	savepoint atomic.Uint64
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise.
func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	if tx, ok := From(ctx); ok {
		return fn(ctx, tx)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(WithTx(ctx, tx), tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunDryRun runs fn and always discards its writes. Inside an existing
// transaction the work is scoped by a savepoint, so the outer transaction
// survives a failing fn. The returned error is fn's error, or the
// infrastructure error that prevented running it.
func (r *Runner) RunDryRun(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	if tx, ok := From(ctx); ok {
		name := fmt.Sprintf("dry_run_%d", r.savepoint.Add(1))
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			return fmt.Errorf("create savepoint: %w", err)
		}
		fnErr := fn(ctx, tx)
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			return fmt.Errorf("rollback to savepoint: %w", err)
		}
		return fnErr
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	return fn(WithTx(ctx, tx), tx)
}
