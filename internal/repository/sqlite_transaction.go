package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
)

// SQLiteTransactionRepo is the append-only ledger table.
type SQLiteTransactionRepo struct {
	db db.Querier
}

func NewSQLiteTransactionRepo(conn db.Querier) *SQLiteTransactionRepo {
	return &SQLiteTransactionRepo{db: conn}
}

const transactionColumns = `id, account_id, amount, trigger, description, ref_type, ref_id,
	COALESCE(dedup_key, ''), created_at`

func (r *SQLiteTransactionRepo) Insert(ctx context.Context, tx *domain.Transaction) (bool, error) {
	query := `INSERT INTO transactions (id, account_id, amount, trigger, description,
		ref_type, ref_id, dedup_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.AccountID,
		tx.Amount,
		string(tx.Trigger),
		tx.Description,
		tx.RefType,
		tx.RefID,
		nullableString(tx.DedupKey),
		formatTime(tx.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting transaction: %w", err)
	}
	return db.RowsAffected(res) == 1, nil
}

func (r *SQLiteTransactionRepo) GetByDedupKey(ctx context.Context, accountID, key string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = ? AND dedup_key = ?`
	return scanTransaction(r.db.QueryRowContext(ctx, query, accountID, key))
}

func (r *SQLiteTransactionRepo) ListRecent(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE account_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txs, nil
}

// SumEarned sums positive amounts created in [from, to).
func (r *SQLiteTransactionRepo) SumEarned(ctx context.Context, accountID string, from, to time.Time) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE account_id = ? AND amount > 0 AND created_at >= ? AND created_at < ?`
	var sum int64
	if err := r.db.QueryRowContext(ctx, query, accountID, formatTime(from), formatTime(to)).Scan(&sum); err != nil {
		return 0, fmt.Errorf("summing earned amounts: %w", err)
	}
	return sum, nil
}

func (r *SQLiteTransactionRepo) SumAll(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = ?`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("summing ledger: %w", err)
	}
	return sum, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var trigger, createdAt string
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.Amount, &trigger, &tx.Description,
		&tx.RefType, &tx.RefID, &tx.DedupKey, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("transaction: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning transaction: %w", err)
	}
	tx.Trigger = domain.Trigger(trigger)
	tx.CreatedAt = parseTime(createdAt)
	return &tx, nil
}
