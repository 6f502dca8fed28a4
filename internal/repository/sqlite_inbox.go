package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
)

// SQLiteInboxRepo implements InboxRepo using a SQLite database.
type SQLiteInboxRepo struct {
	db db.Querier
}

func NewSQLiteInboxRepo(conn db.Querier) *SQLiteInboxRepo {
	return &SQLiteInboxRepo{db: conn}
}

const inboxColumns = `id, account_id, text, energy, time_estimate, status, processed_at, created_at, updated_at`

func (r *SQLiteInboxRepo) Create(ctx context.Context, item *domain.InboxItem) error {
	query := `INSERT INTO inbox_items (` + inboxColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.AccountID,
		item.Text,
		item.Energy,
		item.TimeEstimate,
		string(item.Status),
		nullableTimeToString(item.ProcessedAt),
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting inbox item: %w", err)
	}
	return nil
}

func (r *SQLiteInboxRepo) GetByID(ctx context.Context, id string) (*domain.InboxItem, error) {
	query := `SELECT ` + inboxColumns + ` FROM inbox_items WHERE id = ?`
	return scanInboxItem(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteInboxRepo) ListByStatus(ctx context.Context, accountID string, status domain.InboxStatus) ([]*domain.InboxItem, error) {
	query := `SELECT ` + inboxColumns + ` FROM inbox_items
		WHERE account_id = ? AND status = ?
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, accountID, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing inbox items: %w", err)
	}
	defer rows.Close()

	var items []*domain.InboxItem
	for rows.Next() {
		item, err := scanInboxItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inbox items: %w", err)
	}
	return items, nil
}

func (r *SQLiteInboxRepo) Update(ctx context.Context, item *domain.InboxItem) error {
	query := `UPDATE inbox_items SET text = ?, energy = ?, time_estimate = ?, status = ?,
		processed_at = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		item.Text,
		item.Energy,
		item.TimeEstimate,
		string(item.Status),
		nullableTimeToString(item.ProcessedAt),
		formatTime(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating inbox item: %w", err)
	}
	if db.RowsAffected(res) == 0 {
		return fmt.Errorf("inbox item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteInboxRepo) MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	ts := formatTime(at)
	res, err := r.db.ExecContext(ctx,
		`UPDATE inbox_items SET status = 'processed', processed_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'pending'`, ts, ts, id)
	if err != nil {
		return false, fmt.Errorf("marking inbox item processed: %w", err)
	}
	return db.RowsAffected(res) == 1, nil
}

// CountProcessed counts items processed in [from, to).
func (r *SQLiteInboxRepo) CountProcessed(ctx context.Context, accountID string, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inbox_items
		 WHERE account_id = ? AND status = 'processed' AND processed_at >= ? AND processed_at < ?`,
		accountID, formatTime(from), formatTime(to)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting processed inbox items: %w", err)
	}
	return n, nil
}

func scanInboxItem(row rowScanner) (*domain.InboxItem, error) {
	var item domain.InboxItem
	var status, createdAt, updatedAt string
	var processedAt sql.NullString

	err := row.Scan(&item.ID, &item.AccountID, &item.Text, &item.Energy, &item.TimeEstimate,
		&status, &processedAt, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("inbox item: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning inbox item: %w", err)
	}
	item.Status = domain.InboxStatus(status)
	item.ProcessedAt = parseNullableTime(processedAt)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return &item, nil
}
