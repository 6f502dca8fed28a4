package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
)

// SQLiteItemRepo implements ItemRepo using a SQLite database.
type SQLiteItemRepo struct {
	db db.Querier
}

func NewSQLiteItemRepo(conn db.Querier) *SQLiteItemRepo {
	return &SQLiteItemRepo{db: conn}
}

const itemColumns = `id, account_id, name, price, category, status, times_purchased,
	last_purchased_at, created_at, updated_at`

func (r *SQLiteItemRepo) Create(ctx context.Context, item *domain.RedeemableItem) error {
	query := `INSERT INTO reward_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.AccountID,
		item.Name,
		item.Price,
		item.Category,
		string(item.Status),
		item.TimesPurchased,
		nullableTimeToString(item.LastPurchasedAt),
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting reward item: %w", err)
	}
	return nil
}

func (r *SQLiteItemRepo) GetByID(ctx context.Context, id string) (*domain.RedeemableItem, error) {
	query := `SELECT ` + itemColumns + ` FROM reward_items WHERE id = ?`
	return scanItem(r.db.QueryRowContext(ctx, query, id))
}

// ListByAccount returns active items, or active and archived ones when
// includeInactive is set. Deleted items are never listed.
func (r *SQLiteItemRepo) ListByAccount(ctx context.Context, accountID string, includeInactive bool) ([]*domain.RedeemableItem, error) {
	query := `SELECT ` + itemColumns + ` FROM reward_items WHERE account_id = ?`
	if includeInactive {
		query += ` AND status != 'deleted'`
	} else {
		query += ` AND status = 'active'`
	}
	query += ` ORDER BY price, name`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing reward items: %w", err)
	}
	defer rows.Close()

	var items []*domain.RedeemableItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reward items: %w", err)
	}
	return items, nil
}

func (r *SQLiteItemRepo) Update(ctx context.Context, item *domain.RedeemableItem) error {
	query := `UPDATE reward_items SET name = ?, price = ?, category = ?, status = ?,
		times_purchased = ?, last_purchased_at = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		item.Name,
		item.Price,
		item.Category,
		string(item.Status),
		item.TimesPurchased,
		nullableTimeToString(item.LastPurchasedAt),
		formatTime(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("updating reward item: %w", err)
	}
	if db.RowsAffected(res) == 0 {
		return fmt.Errorf("reward item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

func scanItem(row rowScanner) (*domain.RedeemableItem, error) {
	var item domain.RedeemableItem
	var status, createdAt, updatedAt string
	var lastPurchased sql.NullString

	err := row.Scan(&item.ID, &item.AccountID, &item.Name, &item.Price, &item.Category,
		&status, &item.TimesPurchased, &lastPurchased, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("reward item: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning reward item: %w", err)
	}
	item.Status = domain.ItemStatus(status)
	item.LastPurchasedAt = parseNullableTime(lastPurchased)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return &item, nil
}
