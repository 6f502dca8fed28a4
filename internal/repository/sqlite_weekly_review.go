package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
)

type SQLiteWeeklyReviewRepo struct {
	db db.Querier
}

func NewSQLiteWeeklyReviewRepo(conn db.Querier) *SQLiteWeeklyReviewRepo {
	return &SQLiteWeeklyReviewRepo{db: conn}
}

func (r *SQLiteWeeklyReviewRepo) Get(ctx context.Context, accountID, weekStart string) (*domain.WeeklyReview, error) {
	query := `SELECT account_id, week_start, inbox_processed, goals_reviewed, someday_reviewed,
		wins, learnings, plan, completed, completed_at, created_at, updated_at
		FROM weekly_reviews WHERE account_id = ? AND week_start = ?`

	var wr domain.WeeklyReview
	var inbox, goals, someday, completed int
	var completedAt sql.NullString
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, accountID, weekStart).Scan(
		&wr.AccountID, &wr.WeekStart, &inbox, &goals, &someday,
		&wr.Wins, &wr.Learnings, &wr.Plan, &completed, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("weekly review: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning weekly review: %w", err)
	}
	wr.InboxProcessed = intToBool(inbox)
	wr.GoalsReviewed = intToBool(goals)
	wr.SomedayReviewed = intToBool(someday)
	wr.Completed = intToBool(completed)
	wr.CompletedAt = parseNullableTime(completedAt)
	wr.CreatedAt = parseTime(createdAt)
	wr.UpdatedAt = parseTime(updatedAt)
	return &wr, nil
}

func (r *SQLiteWeeklyReviewRepo) Upsert(ctx context.Context, wr *domain.WeeklyReview) error {
	query := `INSERT INTO weekly_reviews (account_id, week_start, inbox_processed, goals_reviewed,
		someday_reviewed, wins, learnings, plan, completed, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, week_start) DO UPDATE SET
			inbox_processed = excluded.inbox_processed,
			goals_reviewed = excluded.goals_reviewed,
			someday_reviewed = excluded.someday_reviewed,
			wins = excluded.wins,
			learnings = excluded.learnings,
			plan = excluded.plan,
			completed = excluded.completed,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		wr.AccountID, wr.WeekStart,
		boolToInt(wr.InboxProcessed), boolToInt(wr.GoalsReviewed), boolToInt(wr.SomedayReviewed),
		wr.Wins, wr.Learnings, wr.Plan,
		boolToInt(wr.Completed), nullableTimeToString(wr.CompletedAt),
		formatTime(wr.CreatedAt), formatTime(wr.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting weekly review: %w", err)
	}
	return nil
}
