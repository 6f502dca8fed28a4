package service

import (
	"context"
	"time"

	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/reward"
)

// EarnRequest asks the ledger to credit (or, for penalties, debit) an
// account for a trigger. A non-empty DedupKey makes the request idempotent.
type EarnRequest struct {
	AccountID   string
	Trigger     domain.Trigger
	Context     reward.Context
	DedupKey    string
	Description string
	RefType     string
	RefID       string
}

// EarnResult reports what Earn did. Duplicate means the dedup key was seen
// before and Transaction is the original entry. Skipped means nothing was
// written (inactive account, zero amount, or a penalty on an empty balance).
type EarnResult struct {
	Transaction *domain.Transaction
	Amount      int64
	Duplicate   bool
	Skipped     bool
}

// Credited reports whether this call changed the balance.
func (r EarnResult) Credited() bool {
	return !r.Duplicate && !r.Skipped
}

// ReconcileReport compares the maintained balance with the transaction sum.
type ReconcileReport struct {
	AccountID string
	Balance   int64
	LedgerSum int64
}

func (r ReconcileReport) Consistent() bool {
	return r.Balance == r.LedgerSum
}

type LedgerService interface {
	EnsureAccount(ctx context.Context, accountID, displayName string) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	ListAccounts(ctx context.Context, activeOnly bool) ([]*domain.Account, error)
	SetActive(ctx context.Context, accountID string, active bool) error
	SetPenaltiesEnabled(ctx context.Context, accountID string, enabled bool) error

	Earn(ctx context.Context, req EarnRequest) (EarnResult, error)
	Spend(ctx context.Context, accountID, itemID string) (*domain.Transaction, error)
	Adjust(ctx context.Context, accountID string, amount int64, reason string) (*domain.Transaction, error)
	Balance(ctx context.Context, accountID string) (int64, error)
	Reconcile(ctx context.Context, accountID string) (ReconcileReport, error)

	Rates(ctx context.Context, accountID string) (domain.Rates, error)
	SetRates(ctx context.Context, accountID string, rates domain.Rates) error

	Stats(ctx context.Context, accountID string, now time.Time, windowDays int) (*domain.LedgerStats, error)
	History(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error)
}

type ItemService interface {
	Create(ctx context.Context, item *domain.RedeemableItem) error
	Get(ctx context.Context, accountID, itemID string) (*domain.RedeemableItem, error)
	// Resolve finds an active item by id or case-insensitive name.
	Resolve(ctx context.Context, accountID, ref string) (*domain.RedeemableItem, error)
	List(ctx context.Context, accountID string, includeInactive bool) ([]*domain.RedeemableItem, error)
	Update(ctx context.Context, item *domain.RedeemableItem) error
	Archive(ctx context.Context, accountID, itemID string) error
	Unarchive(ctx context.Context, accountID, itemID string) error
	Delete(ctx context.Context, accountID, itemID string) error
}

type InboxService interface {
	Capture(ctx context.Context, accountID, text string) (*domain.InboxItem, error)
	Get(ctx context.Context, accountID, itemID string) (*domain.InboxItem, error)
	List(ctx context.Context, accountID string, status domain.InboxStatus) ([]*domain.InboxItem, error)
	// Complete marks the item processed and pays the inbox reward once.
	Complete(ctx context.Context, accountID, itemID string) (EarnResult, error)
	// Triage stores tags and a disposition without paying anything.
	Triage(ctx context.Context, accountID, itemID, energy, timeEstimate string, status domain.InboxStatus) error
}

type RitualStatusService interface {
	HasActiveOrCompletedRitual(ctx context.Context, accountID string, ritual domain.Ritual, date time.Time) (bool, error)
	// IsRitualCompleted looks only at the stored record; a live session
	// does not count.
	IsRitualCompleted(ctx context.Context, accountID string, ritual domain.Ritual, date time.Time) (bool, error)
}

// ReportService summarises the daily entries of an account. Both reports
// end on the calendar day of now, in now's location.
type ReportService interface {
	Week(ctx context.Context, accountID string, now time.Time) (*domain.WeekStats, error)
	Habits(ctx context.Context, accountID string, now time.Time) (*domain.HabitStats, error)
}
