package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/arbr39/kaizen/internal/domain"
	"github.com/google/uuid"
)

// Now is the fixed clock used by fixtures: Wednesday 2024-05-08 21:30 UTC.
var Now = time.Date(2024, 5, 8, 21, 30, 0, 0, time.UTC)

// SeedAccount inserts an account with an opening balance. The balance is
// backed by a manual_adjustment transaction so aggregate and ledger agree.
func SeedAccount(t *testing.T, database *sql.DB, id string, balance int64) *domain.Account {
	t.Helper()
	ctx := context.Background()
	ts := Now.Format(time.RFC3339)

	_, err := database.ExecContext(ctx, `INSERT INTO accounts (id, display_name, active, penalties_enabled,
		balance, total_earned, total_spent, created_at, updated_at)
		VALUES (?, ?, 1, 0, ?, ?, 0, ?, ?)`, id, id, balance, balance, ts, ts)
	if err != nil {
		t.Fatalf("seeding account %s: %v", id, err)
	}
	if balance > 0 {
		_, err = database.ExecContext(ctx, `INSERT INTO transactions (id, account_id, amount, trigger, description, created_at)
			VALUES (?, ?, ?, ?, 'opening balance', ?)`,
			uuid.New().String(), id, balance, string(domain.TriggerManualAdjustment), ts)
		if err != nil {
			t.Fatalf("seeding opening balance: %v", err)
		}
	}

	return &domain.Account{
		ID:          id,
		DisplayName: id,
		Active:      true,
		Balance:     balance,
		TotalEarned: balance,
		CreatedAt:   Now,
		UpdatedAt:   Now,
	}
}

// Transaction options
type TransactionOption func(*domain.Transaction)

func WithTrigger(trig domain.Trigger) TransactionOption {
	return func(tx *domain.Transaction) {
		tx.Trigger = trig
	}
}

func WithDedupKey(key string) TransactionOption {
	return func(tx *domain.Transaction) {
		tx.DedupKey = key
	}
}

func WithCreatedAt(at time.Time) TransactionOption {
	return func(tx *domain.Transaction) {
		tx.CreatedAt = at
	}
}

func NewTestTransaction(accountID string, amount int64, opts ...TransactionOption) *domain.Transaction {
	tx := &domain.Transaction{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Amount:    amount,
		Trigger:   domain.TriggerMorningKaizen,
		CreatedAt: Now,
	}
	for _, opt := range opts {
		opt(tx)
	}
	return tx
}

// Item options
type ItemOption func(*domain.RedeemableItem)

func WithItemStatus(s domain.ItemStatus) ItemOption {
	return func(i *domain.RedeemableItem) {
		i.Status = s
	}
}

func WithCategory(c string) ItemOption {
	return func(i *domain.RedeemableItem) {
		i.Category = c
	}
}

func NewTestItem(accountID, name string, price int64, opts ...ItemOption) *domain.RedeemableItem {
	item := &domain.RedeemableItem{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Name:      name,
		Price:     price,
		Status:    domain.ItemActive,
		CreatedAt: Now,
		UpdatedAt: Now,
	}
	for _, opt := range opts {
		opt(item)
	}
	return item
}

// Inbox options
type InboxOption func(*domain.InboxItem)

func WithTags(energy, timeEstimate string) InboxOption {
	return func(i *domain.InboxItem) {
		i.Energy = energy
		i.TimeEstimate = timeEstimate
	}
}

func WithInboxStatus(s domain.InboxStatus) InboxOption {
	return func(i *domain.InboxItem) {
		i.Status = s
	}
}

func WithInboxCreatedAt(at time.Time) InboxOption {
	return func(i *domain.InboxItem) {
		i.CreatedAt = at
		i.UpdatedAt = at
	}
}

func NewTestInboxItem(accountID, text string, opts ...InboxOption) *domain.InboxItem {
	item := &domain.InboxItem{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Text:      text,
		Status:    domain.InboxPending,
		CreatedAt: Now,
		UpdatedAt: Now,
	}
	for _, opt := range opts {
		opt(item)
	}
	return item
}

// Daily entry options
type EntryOption func(*domain.DailyEntry)

func WithTasks(tasks ...string) EntryOption {
	return func(e *domain.DailyEntry) {
		for i := 0; i < len(tasks) && i < 3; i++ {
			e.Tasks[i] = tasks[i]
		}
	}
}

func WithPriority(slot int) EntryOption {
	return func(e *domain.DailyEntry) {
		e.PriorityTask = slot
	}
}

func WithEveningCompleted() EntryOption {
	return func(e *domain.DailyEntry) {
		e.EveningCompleted = true
		at := Now
		e.EveningAt = &at
	}
}

// NewTestMorningEntry builds a completed morning entry for date.
func NewTestMorningEntry(accountID, date string, opts ...EntryOption) *domain.DailyEntry {
	at := Now
	e := &domain.DailyEntry{
		AccountID:        accountID,
		Date:             date,
		MorningCompleted: true,
		MorningAt:        &at,
		CreatedAt:        Now,
		UpdatedAt:        Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
