package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
)

// SQLiteAccountRepo implements AccountRepo using a SQLite database.
type SQLiteAccountRepo struct {
	db db.Querier
}

func NewSQLiteAccountRepo(conn db.Querier) *SQLiteAccountRepo {
	return &SQLiteAccountRepo{db: conn}
}

const accountColumns = `id, display_name, active, penalties_enabled, balance,
	total_earned, total_spent, created_at, updated_at`

func (r *SQLiteAccountRepo) GetOrCreate(ctx context.Context, id, displayName string, now time.Time) (*domain.Account, error) {
	ts := formatTime(now)
	query := `INSERT INTO accounts (id, display_name, active, penalties_enabled, balance,
		total_earned, total_spent, created_at, updated_at)
		VALUES (?, ?, 1, 0, 0, 0, 0, ?, ?)
		ON CONFLICT(id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, id, displayName, ts, ts); err != nil {
		return nil, fmt.Errorf("inserting account: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *SQLiteAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteAccountRepo) List(ctx context.Context, activeOnly bool) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a, err := r.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accounts: %w", err)
	}
	return accounts, nil
}

func (r *SQLiteAccountRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	return r.setFlag(ctx, "active", id, active, now)
}

func (r *SQLiteAccountRepo) SetPenaltiesEnabled(ctx context.Context, id string, enabled bool, now time.Time) error {
	return r.setFlag(ctx, "penalties_enabled", id, enabled, now)
}

func (r *SQLiteAccountRepo) setFlag(ctx context.Context, column, id string, value bool, now time.Time) error {
	query := `UPDATE accounts SET ` + column + ` = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, boolToInt(value), formatTime(now), id)
	if err != nil {
		return fmt.Errorf("updating account %s: %w", column, err)
	}
	if db.RowsAffected(res) == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteAccountRepo) ApplyDelta(ctx context.Context, id string, amount int64, now time.Time) (bool, error) {
	var earned, spent int64
	if amount > 0 {
		earned = amount
	} else {
		spent = -amount
	}
	query := `UPDATE accounts SET
		balance = balance + ?,
		total_earned = total_earned + ?,
		total_spent = total_spent + ?,
		updated_at = ?
		WHERE id = ? AND balance + ? >= 0`
	res, err := r.db.ExecContext(ctx, query, amount, earned, spent, formatTime(now), id, amount)
	if err != nil {
		return false, fmt.Errorf("applying balance delta: %w", err)
	}
	return db.RowsAffected(res) == 1, nil
}

func (r *SQLiteAccountRepo) GetRates(ctx context.Context, id string) (domain.Rates, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT trigger, amount FROM account_rates WHERE account_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("listing account rates: %w", err)
	}
	defer rows.Close()

	rates := domain.Rates{}
	for rows.Next() {
		var trigger string
		var amount int64
		if err := rows.Scan(&trigger, &amount); err != nil {
			return nil, fmt.Errorf("scanning account rate: %w", err)
		}
		rates[domain.Trigger(trigger)] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating account rates: %w", err)
	}
	return rates, nil
}

func (r *SQLiteAccountRepo) SetRates(ctx context.Context, id string, rates domain.Rates, now time.Time) error {
	query := `INSERT INTO account_rates (account_id, trigger, amount, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account_id, trigger) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`
	ts := formatTime(now)
	for _, trigger := range rates.Triggers() {
		if _, err := r.db.ExecContext(ctx, query, id, string(trigger), rates[trigger], ts); err != nil {
			return fmt.Errorf("upserting rate %s: %w", trigger, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteAccountRepo) scanAccount(row rowScanner) (*domain.Account, error) {
	var a domain.Account
	var active, penalties int
	var createdAt, updatedAt string

	err := row.Scan(&a.ID, &a.DisplayName, &active, &penalties, &a.Balance,
		&a.TotalEarned, &a.TotalSpent, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	a.Active = intToBool(active)
	a.PenaltiesEnabled = intToBool(penalties)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}
