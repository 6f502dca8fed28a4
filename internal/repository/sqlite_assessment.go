package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/google/uuid"
)

// SQLiteAssessmentRepo stores monthly assessments and their principle ratings.
type SQLiteAssessmentRepo struct {
	db db.Querier
}

func NewSQLiteAssessmentRepo(conn db.Querier) *SQLiteAssessmentRepo {
	return &SQLiteAssessmentRepo{db: conn}
}

const assessmentColumns = `id, account_id, year, month, current_day, average_score,
	completed, completed_at, created_at, updated_at`

func (r *SQLiteAssessmentRepo) GetOrCreate(ctx context.Context, accountID string, year, month int, now time.Time) (*domain.MonthlyAssessment, error) {
	ts := formatTime(now)
	query := `INSERT INTO monthly_assessments (id, account_id, year, month, current_day, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, 0, ?, ?)
		ON CONFLICT(account_id, year, month) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, uuid.New().String(), accountID, year, month, ts, ts); err != nil {
		return nil, fmt.Errorf("inserting monthly assessment: %w", err)
	}
	return r.Find(ctx, accountID, year, month)
}

func (r *SQLiteAssessmentRepo) Find(ctx context.Context, accountID string, year, month int) (*domain.MonthlyAssessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM monthly_assessments
		WHERE account_id = ? AND year = ? AND month = ?`

	var a domain.MonthlyAssessment
	var avg sql.NullInt64
	var completed int
	var completedAt sql.NullString
	var createdAt, updatedAt string
	err := r.db.QueryRowContext(ctx, query, accountID, year, month).Scan(
		&a.ID, &a.AccountID, &a.Year, &a.Month, &a.CurrentDay, &avg,
		&completed, &completedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("monthly assessment: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning monthly assessment: %w", err)
	}
	a.AverageScore = parseNullableInt(avg)
	a.Completed = intToBool(completed)
	a.CompletedAt = parseNullableTime(completedAt)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func (r *SQLiteAssessmentRepo) Update(ctx context.Context, a *domain.MonthlyAssessment) error {
	query := `UPDATE monthly_assessments SET current_day = ?, average_score = ?, completed = ?,
		completed_at = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		a.CurrentDay,
		nullableIntToValue(a.AverageScore),
		boolToInt(a.Completed),
		nullableTimeToString(a.CompletedAt),
		formatTime(a.UpdatedAt),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating monthly assessment: %w", err)
	}
	if db.RowsAffected(res) == 0 {
		return fmt.Errorf("monthly assessment %s: %w", a.ID, ErrNotFound)
	}
	return nil
}

// SaveRatings upserts ratings; re-rating a principle replaces its score.
func (r *SQLiteAssessmentRepo) SaveRatings(ctx context.Context, ratings []domain.PrincipleRating) error {
	query := `INSERT INTO principle_ratings (assessment_id, principle_number, score, rated_on)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(assessment_id, principle_number) DO UPDATE SET
			score = excluded.score, rated_on = excluded.rated_on`
	for _, rating := range ratings {
		if _, err := r.db.ExecContext(ctx, query, rating.AssessmentID, rating.Number, rating.Score, rating.RatedOn); err != nil {
			return fmt.Errorf("saving rating for principle %d: %w", rating.Number, err)
		}
	}
	return nil
}

func (r *SQLiteAssessmentRepo) ListRatings(ctx context.Context, assessmentID string) ([]domain.PrincipleRating, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT assessment_id, principle_number, score, rated_on FROM principle_ratings
		 WHERE assessment_id = ? ORDER BY principle_number`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("listing principle ratings: %w", err)
	}
	defer rows.Close()

	var ratings []domain.PrincipleRating
	for rows.Next() {
		var pr domain.PrincipleRating
		if err := rows.Scan(&pr.AssessmentID, &pr.Number, &pr.Score, &pr.RatedOn); err != nil {
			return nil, fmt.Errorf("scanning principle rating: %w", err)
		}
		ratings = append(ratings, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating principle ratings: %w", err)
	}
	return ratings, nil
}
