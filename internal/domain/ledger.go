package domain

import (
	"fmt"
	"sort"
	"time"
)

// Trigger names an event that may produce a ledger transaction.
type Trigger string

const (
	TriggerMorningKaizen        Trigger = "morning_kaizen"
	TriggerEveningReflection    Trigger = "evening_reflection"
	TriggerTaskDone             Trigger = "task_done"
	TriggerPriorityTaskDone     Trigger = "priority_task_done"
	TriggerPriorityTaskBonus    Trigger = "priority_task_bonus"
	TriggerExercise             Trigger = "exercise"
	TriggerEatingWell           Trigger = "eating_well"
	TriggerWeeklyReview         Trigger = "weekly_review"
	TriggerMonthlyAssessment    Trigger = "monthly_assessment"
	TriggerStreakBonus          Trigger = "streak_bonus"
	TriggerInboxTaskDone        Trigger = "inbox_task_done"
	TriggerMissedEveningPenalty Trigger = "missed_evening_penalty"

	// Not rate-driven.
	TriggerRewardSpent      Trigger = "reward_spent"
	TriggerManualAdjustment Trigger = "manual_adjustment"
)

// DedupKey scopes a trigger to the event it pays for, e.g. a date or an
// item id. One key pays at most once per account.
func DedupKey(t Trigger, scope string) string {
	return string(t) + ":" + scope
}

// Rates maps a trigger to its per-event amount.
type Rates map[Trigger]int64

// DefaultRates returns the built-in rate table.
func DefaultRates() Rates {
	return Rates{
		TriggerMorningKaizen:        50,
		TriggerEveningReflection:    50,
		TriggerTaskDone:             20,
		TriggerPriorityTaskBonus:    50,
		TriggerExercise:             30,
		TriggerEatingWell:           20,
		TriggerWeeklyReview:         100,
		TriggerMonthlyAssessment:    100,
		TriggerStreakBonus:          10,
		TriggerMissedEveningPenalty: 20,
	}
}

// IsRateTrigger reports whether t has an entry in the rate table and can
// therefore be configured per account.
func IsRateTrigger(t Trigger) bool {
	_, ok := DefaultRates()[t]
	return ok
}

// Merge returns a copy of r with every entry of over applied on top.
func (r Rates) Merge(over Rates) Rates {
	out := make(Rates, len(r)+len(over))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Validate rejects unknown triggers and negative amounts.
func (r Rates) Validate() error {
	for k, v := range r {
		if !IsRateTrigger(k) {
			return fmt.Errorf("%w: unknown trigger %q", ErrInvalidRate, k)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidRate, k)
		}
	}
	return nil
}

// Triggers returns the keys of r in a stable order.
func (r Rates) Triggers() []Trigger {
	keys := make([]Trigger, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Account is one end user's ledger. Balance, TotalEarned and TotalSpent are
// maintained aggregates of the account's transactions.
type Account struct {
	ID               string
	DisplayName      string
	Active           bool
	PenaltiesEnabled bool
	Balance          int64
	TotalEarned      int64
	TotalSpent       int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Transaction is an immutable ledger entry. Positive amounts are earnings,
// negative amounts are spends and penalties.
type Transaction struct {
	ID          string
	AccountID   string
	Amount      int64
	Trigger     Trigger
	Description string
	RefType     string
	RefID       string
	DedupKey    string
	CreatedAt   time.Time
}

// ItemStatus is the soft-delete lifecycle of a redeemable item.
type ItemStatus string

const (
	ItemActive   ItemStatus = "active"
	ItemArchived ItemStatus = "archived"
	ItemDeleted  ItemStatus = "deleted"
)

// RedeemableItem is a user-defined reward the balance can be spent on.
type RedeemableItem struct {
	ID              string
	AccountID       string
	Name            string
	Price           int64
	Category        string
	Status          ItemStatus
	TimesPurchased  int
	LastPurchasedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the user-editable fields.
func (i *RedeemableItem) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if i.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidItem)
	}
	switch i.Status {
	case ItemActive, ItemArchived, ItemDeleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidItem, i.Status)
	}
	return nil
}

// RecordPurchase bumps the purchase counters.
func (i *RedeemableItem) RecordPurchase(now time.Time) {
	i.TimesPurchased++
	i.LastPurchasedAt = &now
	i.UpdatedAt = now
}

// LedgerStats summarises an account for display.
type LedgerStats struct {
	Balance       int64
	TotalEarned   int64
	TotalSpent    int64
	EarnedToday   int64
	EarnedWindow  int64
	WindowDays    int
	Recent        []*Transaction
	EveningStreak int
}
