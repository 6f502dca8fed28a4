package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/arbr39/kaizen/internal/db"
)

// FailingWriteUoW breaks a ledger write part-way: the FailAt-th statement
// executed inside the transaction (1-based) returns Err instead of running.
// Reads are not counted. Writes reports how many statements were attempted
// in the last transaction, so a test can tell which step it broke.
type FailingWriteUoW struct {
	DB     *sql.DB
	FailAt int32
	Err    error

	writes atomic.Int32
}

func (u *FailingWriteUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("opening ledger transaction: %w", err)
	}
	u.writes.Store(0)

	if err := fn(ctx, &failingWrites{Querier: tx, uow: u}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (u *FailingWriteUoW) Writes() int {
	return int(u.writes.Load())
}

type failingWrites struct {
	db.Querier
	uow *FailingWriteUoW
}

func (f *failingWrites) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.uow.writes.Add(1) == f.uow.FailAt {
		return nil, f.uow.Err
	}
	return f.Querier.ExecContext(ctx, query, args...)
}
