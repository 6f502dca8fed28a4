// Package ritual defines the five reflection dialogs and what happens when
// each one completes: persisting the answers and paying the rewards.
package ritual

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/arbr39/kaizen/internal/calendar"
	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/service"
)

// Ledger pays rewards.
type Ledger interface {
	Earn(ctx context.Context, req service.EarnRequest) (service.EarnResult, error)
}

// Entries stores daily morning and evening answers.
type Entries interface {
	Get(ctx context.Context, accountID, date string) (*domain.DailyEntry, error)
	UpsertMorning(ctx context.Context, e *domain.DailyEntry) error
	UpsertEvening(ctx context.Context, e *domain.DailyEntry) error
	SetTaskEventID(ctx context.Context, accountID, date string, slot int, eventID string) error
	EveningCompletedDates(ctx context.Context, accountID, from, to string) (map[string]bool, error)
}

// Inbox is the slice of the inbox service the triage and weekly rituals use.
type Inbox interface {
	Get(ctx context.Context, accountID, itemID string) (*domain.InboxItem, error)
	List(ctx context.Context, accountID string, status domain.InboxStatus) ([]*domain.InboxItem, error)
	Complete(ctx context.Context, accountID, itemID string) (service.EarnResult, error)
	Triage(ctx context.Context, accountID, itemID, energy, timeEstimate string, status domain.InboxStatus) error
}

type WeeklyReviews interface {
	Get(ctx context.Context, accountID, weekStart string) (*domain.WeeklyReview, error)
	Upsert(ctx context.Context, r *domain.WeeklyReview) error
}

type Assessments interface {
	GetOrCreate(ctx context.Context, accountID string, year, month int, now time.Time) (*domain.MonthlyAssessment, error)
	Update(ctx context.Context, a *domain.MonthlyAssessment) error
	SaveRatings(ctx context.Context, ratings []domain.PrincipleRating) error
	ListRatings(ctx context.Context, assessmentID string) ([]domain.PrincipleRating, error)
}

// Deps wires the rituals to storage and the ledger.
type Deps struct {
	Ledger      Ledger
	Entries     Entries
	Inbox       Inbox
	Weekly      WeeklyReviews
	Assessments Assessments
	// Calendar receives the morning tasks. Nil means no calendar.
	Calendar calendar.Client
	// Location decides what "today" is. Nil means UTC.
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// Set holds the ritual definitions built from one Deps.
type Set struct {
	deps       Deps
	principles []domain.Principle
}

// New validates deps and loads the principles catalog.
func New(deps Deps) (*Set, error) {
	if deps.Ledger == nil || deps.Entries == nil || deps.Inbox == nil || deps.Weekly == nil || deps.Assessments == nil {
		return nil, fmt.Errorf("ritual deps: ledger and all stores are required")
	}
	if deps.Calendar == nil {
		deps.Calendar = calendar.Noop{}
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	principles, err := LoadPrinciples()
	if err != nil {
		return nil, err
	}
	return &Set{deps: deps, principles: principles}, nil
}

// Definitions returns the five rituals in presentation order.
func (s *Set) Definitions() []*dialog.Definition {
	return []*dialog.Definition{
		s.morning(),
		s.evening(),
		s.inboxTriage(),
		s.weeklyReview(),
		s.monthlyAssessment(),
	}
}

// Registry builds a dialog registry from Definitions.
func (s *Set) Registry() (*dialog.Registry, error) {
	return dialog.NewRegistry(s.Definitions()...)
}

// Principles returns the catalog.
func (s *Set) Principles() []domain.Principle {
	return s.principles
}

func (s *Set) now() time.Time {
	return s.deps.Now().In(s.deps.Location)
}

func (s *Set) today() string {
	return domain.DateKey(s.now())
}

func (s *Set) parseDate(key string) (time.Time, error) {
	t, err := time.ParseInLocation(domain.DateLayout, key, s.deps.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad ritual date %q: %w", key, err)
	}
	return t, nil
}

// seedDate pins the ritual to the day it was started on, so an evening that
// runs past midnight still lands on the right entry.
func (s *Set) seedDate(_ context.Context, _ string, params map[string]string) (map[string]string, error) {
	if params["date"] == "" {
		params["date"] = s.today()
	}
	return params, nil
}

// earnings accumulates paid rewards for the completion summary.
type earnings struct {
	lines []string
	total int64
}

func (e *earnings) add(label string, res service.EarnResult) {
	if !res.Credited() {
		return
	}
	e.total += res.Amount
	e.lines = append(e.lines, fmt.Sprintf("  %+d %s", res.Amount, label))
}

func (e *earnings) summary(head string) string {
	var b strings.Builder
	b.WriteString(head)
	if len(e.lines) == 0 {
		b.WriteString("\nAlready rewarded for this one.")
		return b.String()
	}
	for _, l := range e.lines {
		b.WriteString("\n")
		b.WriteString(l)
	}
	fmt.Fprintf(&b, "\nTotal: %+d", e.total)
	return b.String()
}

func (s *Set) earn(ctx context.Context, acc *earnings, label string, req service.EarnRequest) error {
	res, err := s.deps.Ledger.Earn(ctx, req)
	if err != nil {
		return fmt.Errorf("earning %s: %w", req.Trigger, err)
	}
	acc.add(label, res)
	return nil
}

// Shared input helpers.

func prompt(text string) func(dialog.View) string {
	return func(dialog.View) string { return text }
}

func next(step string) func(dialog.View) string {
	return func(dialog.View) string { return step }
}

func fixedChoices(choices ...dialog.Choice) func(dialog.View) []dialog.Choice {
	return func(dialog.View) []dialog.Choice { return choices }
}

var yesNo = fixedChoices(
	dialog.Choice{ID: "yes", Label: "Yes"},
	dialog.Choice{ID: "no", Label: "No"},
)

const maxAnswer = 1000

func freeText() dialog.Input {
	return dialog.Input{Kind: dialog.InputText, MaxLen: maxAnswer}
}

// clockTime accepts H:MM or HH:MM and stores HH:MM.
func clockTime() dialog.Input {
	return dialog.Input{
		Kind:   dialog.InputText,
		MaxLen: 5,
		Validate: func(v string) error {
			if _, err := time.Parse("15:04", v); err != nil {
				return fmt.Errorf("use HH:MM, for example 07:30")
			}
			return nil
		},
	}
}

func normalizeClock(v string) string {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return v
	}
	return t.Format("15:04")
}
