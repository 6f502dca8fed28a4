package db

import (
	"context"
	"database/sql"
)

// Querier is what kaizen repositories run SQL through. A *sql.DB serves
// reads and single-row writes; the *sql.Tx handed out by TxRunner serves
// the writes that must land together with a ledger entry.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// RowsAffected reports how many rows res touched. Drivers that cannot report
// it are treated as having touched none.
func RowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
