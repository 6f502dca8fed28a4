package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UnitOfWork runs fn inside one SQLite transaction. The ledger uses it so a
// transaction row and the balance it moves commit or vanish together. fn
// must build its repositories on q, never on the outer *sql.DB.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
}

// TxRunner is the database/sql UnitOfWork. File databases open their
// transactions with BEGIN IMMEDIATE (see fileDSN), so two ledger writers
// queue on the write lock rather than fail on upgrade.
type TxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

// WithinTx commits when fn returns nil and rolls back on an error or a
// panic. A panic is re-raised after the rollback.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, q Querier) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("opening ledger transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := tx.Rollback()
		if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err != nil {
			err = errors.Join(err, fmt.Errorf("rolling back ledger transaction: %w", rbErr))
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing ledger transaction: %w", err)
	}
	committed = true
	return nil
}
