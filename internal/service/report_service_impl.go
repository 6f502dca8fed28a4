package service

import (
	"context"
	"time"

	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
)

type reportService struct {
	entries repository.DailyEntryRepo
}

func NewReportService(entries repository.DailyEntryRepo) ReportService {
	return &reportService{entries: entries}
}

func (s *reportService) Week(ctx context.Context, accountID string, now time.Time) (*domain.WeekStats, error) {
	from, to := domain.LastNDays(now, domain.ReportDays)
	entries, err := s.entries.ListRange(ctx, accountID, from, to)
	if err != nil {
		return nil, storageErr("week report", err)
	}
	return domain.SummarizeWeek(entries, now), nil
}

func (s *reportService) Habits(ctx context.Context, accountID string, now time.Time) (*domain.HabitStats, error) {
	from, to := domain.LastNDays(now, domain.HabitHorizon)
	entries, err := s.entries.ListRange(ctx, accountID, from, to)
	if err != nil {
		return nil, storageErr("habit stats", err)
	}
	return domain.SummarizeHabits(entries, now), nil
}
