package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/domain"
)

// SQLiteDailyEntryRepo stores one row per account and date. Morning and
// evening rituals write disjoint column sets so neither clobbers the other.
type SQLiteDailyEntryRepo struct {
	db db.Querier
}

func NewSQLiteDailyEntryRepo(conn db.Querier) *SQLiteDailyEntryRepo {
	return &SQLiteDailyEntryRepo{db: conn}
}

const dailyEntryColumns = `account_id, entry_date, wake_time, energy_plus, energy_minus,
	task_1, task_2, task_3, priority_task, morning_completed, morning_at,
	task_1_done, task_2_done, task_3_done, insight, improve, exercised, ate_well,
	sleep_time, evening_completed, evening_at,
	task_1_event_id, task_2_event_id, task_3_event_id, created_at, updated_at`

func (r *SQLiteDailyEntryRepo) Get(ctx context.Context, accountID, date string) (*domain.DailyEntry, error) {
	query := `SELECT ` + dailyEntryColumns + ` FROM daily_entries WHERE account_id = ? AND entry_date = ?`
	return scanDailyEntry(r.db.QueryRowContext(ctx, query, accountID, date))
}

func (r *SQLiteDailyEntryRepo) UpsertMorning(ctx context.Context, e *domain.DailyEntry) error {
	query := `INSERT INTO daily_entries (account_id, entry_date, wake_time, energy_plus, energy_minus,
		task_1, task_2, task_3, priority_task, morning_completed, morning_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, entry_date) DO UPDATE SET
			wake_time = excluded.wake_time,
			energy_plus = excluded.energy_plus,
			energy_minus = excluded.energy_minus,
			task_1 = excluded.task_1,
			task_2 = excluded.task_2,
			task_3 = excluded.task_3,
			priority_task = excluded.priority_task,
			morning_completed = excluded.morning_completed,
			morning_at = excluded.morning_at,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		e.AccountID, e.Date, e.WakeTime, e.EnergyPlus, e.EnergyMinus,
		e.Tasks[0], e.Tasks[1], e.Tasks[2], e.PriorityTask,
		boolToInt(e.MorningCompleted), nullableTimeToString(e.MorningAt),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting morning entry: %w", err)
	}
	return nil
}

func (r *SQLiteDailyEntryRepo) UpsertEvening(ctx context.Context, e *domain.DailyEntry) error {
	query := `INSERT INTO daily_entries (account_id, entry_date, task_1_done, task_2_done, task_3_done,
		insight, improve, exercised, ate_well, sleep_time, evening_completed, evening_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, entry_date) DO UPDATE SET
			task_1_done = excluded.task_1_done,
			task_2_done = excluded.task_2_done,
			task_3_done = excluded.task_3_done,
			insight = excluded.insight,
			improve = excluded.improve,
			exercised = excluded.exercised,
			ate_well = excluded.ate_well,
			sleep_time = excluded.sleep_time,
			evening_completed = excluded.evening_completed,
			evening_at = excluded.evening_at,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		e.AccountID, e.Date,
		boolToInt(e.TasksDone[0]), boolToInt(e.TasksDone[1]), boolToInt(e.TasksDone[2]),
		e.Insight, e.Improve, boolToInt(e.Exercised), boolToInt(e.AteWell), e.SleepTime,
		boolToInt(e.EveningCompleted), nullableTimeToString(e.EveningAt),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting evening entry: %w", err)
	}
	return nil
}

// SetTaskEventID records the calendar event created for task slot 1..3.
func (r *SQLiteDailyEntryRepo) SetTaskEventID(ctx context.Context, accountID, date string, slot int, eventID string) error {
	var column string
	switch slot {
	case 1:
		column = "task_1_event_id"
	case 2:
		column = "task_2_event_id"
	case 3:
		column = "task_3_event_id"
	default:
		return fmt.Errorf("task slot %d out of range", slot)
	}
	query := `UPDATE daily_entries SET ` + column + ` = ? WHERE account_id = ? AND entry_date = ?`
	res, err := r.db.ExecContext(ctx, query, eventID, accountID, date)
	if err != nil {
		return fmt.Errorf("setting task event id: %w", err)
	}
	if db.RowsAffected(res) == 0 {
		return fmt.Errorf("daily entry %s: %w", date, ErrNotFound)
	}
	return nil
}

// ListRange returns entries with from <= entry_date <= to, oldest first.
func (r *SQLiteDailyEntryRepo) ListRange(ctx context.Context, accountID, from, to string) ([]*domain.DailyEntry, error) {
	query := `SELECT ` + dailyEntryColumns + ` FROM daily_entries
		WHERE account_id = ? AND entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date`
	rows, err := r.db.QueryContext(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing daily entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.DailyEntry
	for rows.Next() {
		e, err := scanDailyEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily entries: %w", err)
	}
	return entries, nil
}

func (r *SQLiteDailyEntryRepo) EveningCompletedDates(ctx context.Context, accountID, from, to string) (map[string]bool, error) {
	query := `SELECT entry_date FROM daily_entries
		WHERE account_id = ? AND evening_completed = 1 AND entry_date >= ? AND entry_date <= ?`
	rows, err := r.db.QueryContext(ctx, query, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing completed evenings: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("scanning completed evening: %w", err)
		}
		done[date] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating completed evenings: %w", err)
	}
	return done, nil
}

func scanDailyEntry(row rowScanner) (*domain.DailyEntry, error) {
	var e domain.DailyEntry
	var morningCompleted, eveningCompleted, exercised, ateWell int
	var done1, done2, done3 int
	var morningAt, eveningAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&e.AccountID, &e.Date, &e.WakeTime, &e.EnergyPlus, &e.EnergyMinus,
		&e.Tasks[0], &e.Tasks[1], &e.Tasks[2], &e.PriorityTask, &morningCompleted, &morningAt,
		&done1, &done2, &done3, &e.Insight, &e.Improve, &exercised, &ateWell,
		&e.SleepTime, &eveningCompleted, &eveningAt,
		&e.TaskEventIDs[0], &e.TaskEventIDs[1], &e.TaskEventIDs[2], &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("daily entry: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning daily entry: %w", err)
	}
	e.MorningCompleted = intToBool(morningCompleted)
	e.MorningAt = parseNullableTime(morningAt)
	e.TasksDone = [3]bool{intToBool(done1), intToBool(done2), intToBool(done3)}
	e.Exercised = intToBool(exercised)
	e.AteWell = intToBool(ateWell)
	e.EveningCompleted = intToBool(eveningCompleted)
	e.EveningAt = parseNullableTime(eveningAt)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}
