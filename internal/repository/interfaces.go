package repository

import (
	"context"
	"time"

	"github.com/arbr39/kaizen/internal/domain"
)

type AccountRepo interface {
	// GetOrCreate returns the account, inserting it first if it does not exist.
	GetOrCreate(ctx context.Context, id, displayName string, now time.Time) (*domain.Account, error)
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Account, error)
	SetActive(ctx context.Context, id string, active bool, now time.Time) error
	SetPenaltiesEnabled(ctx context.Context, id string, enabled bool, now time.Time) error
	// ApplyDelta moves the balance by amount unless that would take it below
	// zero, in which case it reports false and changes nothing.
	ApplyDelta(ctx context.Context, id string, amount int64, now time.Time) (bool, error)
	GetRates(ctx context.Context, id string) (domain.Rates, error)
	SetRates(ctx context.Context, id string, rates domain.Rates, now time.Time) error
}

type TransactionRepo interface {
	// Insert appends tx. It reports false without error when another
	// transaction already holds tx.DedupKey for the same account.
	Insert(ctx context.Context, tx *domain.Transaction) (bool, error)
	GetByDedupKey(ctx context.Context, accountID, key string) (*domain.Transaction, error)
	ListRecent(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error)
	SumEarned(ctx context.Context, accountID string, from, to time.Time) (int64, error)
	SumAll(ctx context.Context, accountID string) (int64, error)
}

type ItemRepo interface {
	Create(ctx context.Context, item *domain.RedeemableItem) error
	GetByID(ctx context.Context, id string) (*domain.RedeemableItem, error)
	ListByAccount(ctx context.Context, accountID string, includeInactive bool) ([]*domain.RedeemableItem, error)
	Update(ctx context.Context, item *domain.RedeemableItem) error
}

type DailyEntryRepo interface {
	Get(ctx context.Context, accountID, date string) (*domain.DailyEntry, error)
	UpsertMorning(ctx context.Context, e *domain.DailyEntry) error
	UpsertEvening(ctx context.Context, e *domain.DailyEntry) error
	SetTaskEventID(ctx context.Context, accountID, date string, slot int, eventID string) error
	ListRange(ctx context.Context, accountID, from, to string) ([]*domain.DailyEntry, error)
	EveningCompletedDates(ctx context.Context, accountID, from, to string) (map[string]bool, error)
}

type InboxRepo interface {
	Create(ctx context.Context, item *domain.InboxItem) error
	GetByID(ctx context.Context, id string) (*domain.InboxItem, error)
	ListByStatus(ctx context.Context, accountID string, status domain.InboxStatus) ([]*domain.InboxItem, error)
	Update(ctx context.Context, item *domain.InboxItem) error
	// MarkProcessed flips a pending item to processed. It reports false when
	// the item was not pending.
	MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error)
	CountProcessed(ctx context.Context, accountID string, from, to time.Time) (int, error)
}

type WeeklyReviewRepo interface {
	Get(ctx context.Context, accountID, weekStart string) (*domain.WeeklyReview, error)
	Upsert(ctx context.Context, r *domain.WeeklyReview) error
}

type AssessmentRepo interface {
	GetOrCreate(ctx context.Context, accountID string, year, month int, now time.Time) (*domain.MonthlyAssessment, error)
	Find(ctx context.Context, accountID string, year, month int) (*domain.MonthlyAssessment, error)
	Update(ctx context.Context, a *domain.MonthlyAssessment) error
	SaveRatings(ctx context.Context, ratings []domain.PrincipleRating) error
	ListRatings(ctx context.Context, assessmentID string) ([]domain.PrincipleRating, error)
}
