package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
)

// SessionLookup exposes the live dialog session of an account.
type SessionLookup interface {
	Active(ctx context.Context, accountID string) (*dialog.Session, error)
}

type ritualStatusService struct {
	sessions    SessionLookup
	entries     repository.DailyEntryRepo
	inbox       repository.InboxRepo
	weekly      repository.WeeklyReviewRepo
	assessments repository.AssessmentRepo
}

func NewRitualStatusService(
	sessions SessionLookup,
	entries repository.DailyEntryRepo,
	inbox repository.InboxRepo,
	weekly repository.WeeklyReviewRepo,
	assessments repository.AssessmentRepo,
) RitualStatusService {
	return &ritualStatusService{
		sessions:    sessions,
		entries:     entries,
		inbox:       inbox,
		weekly:      weekly,
		assessments: assessments,
	}
}

// HasActiveOrCompletedRitual reports whether a reminder for ritual on date
// would be redundant: the account is in that ritual right now, or its
// record for date is already complete. Day boundaries follow date's location.
func (s *ritualStatusService) HasActiveOrCompletedRitual(ctx context.Context, accountID string, ritual domain.Ritual, date time.Time) (bool, error) {
	if !ritual.Valid() {
		return false, fmt.Errorf("unknown ritual %q", ritual)
	}

	live, err := s.sessions.Active(ctx, accountID)
	if err != nil {
		return false, storageErr("ritual status", err)
	}
	if live != nil && live.Definition == string(ritual) {
		return true, nil
	}

	done, err := s.completed(ctx, accountID, ritual, date)
	if err != nil {
		return false, storageErr("ritual status", err)
	}
	return done, nil
}

func (s *ritualStatusService) IsRitualCompleted(ctx context.Context, accountID string, ritual domain.Ritual, date time.Time) (bool, error) {
	if !ritual.Valid() {
		return false, fmt.Errorf("unknown ritual %q", ritual)
	}
	done, err := s.completed(ctx, accountID, ritual, date)
	if err != nil {
		return false, storageErr("ritual status", err)
	}
	return done, nil
}

func (s *ritualStatusService) completed(ctx context.Context, accountID string, ritual domain.Ritual, date time.Time) (bool, error) {
	switch ritual {
	case domain.RitualMorning, domain.RitualEvening:
		entry, err := s.entries.Get(ctx, accountID, domain.DateKey(date))
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if ritual == domain.RitualMorning {
			return entry.MorningCompleted, nil
		}
		return entry.EveningCompleted, nil

	case domain.RitualWeekly:
		review, err := s.weekly.Get(ctx, accountID, domain.DateKey(domain.WeekStart(date)))
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return review.Completed, nil

	case domain.RitualMonthly:
		a, err := s.assessments.Find(ctx, accountID, date.Year(), int(date.Month()))
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if a.Completed {
			return true, nil
		}
		ratings, err := s.assessments.ListRatings(ctx, a.ID)
		if err != nil {
			return false, err
		}
		day := domain.DateKey(date)
		for _, r := range ratings {
			if r.RatedOn == day {
				return true, nil
			}
		}
		return false, nil

	case domain.RitualInbox:
		y, m, d := date.Date()
		from := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
		n, err := s.inbox.CountProcessed(ctx, accountID, from, from.AddDate(0, 0, 1))
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}
	return false, nil
}
