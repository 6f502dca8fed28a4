package service

import (
	"context"
	"testing"

	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupReports(t *testing.T) (ReportService, repository.DailyEntryRepo) {
	t.Helper()
	database := testutil.NewTestDB(t)
	testutil.SeedAccount(t, database, "a1", 0)
	testutil.SeedAccount(t, database, "a2", 0)
	entries := repository.NewSQLiteDailyEntryRepo(database)
	return NewReportService(entries), entries
}

func TestReportService_WeekCoversSevenDays(t *testing.T) {
	svc, entries := setupReports(t)
	ctx := context.Background()
	for _, date := range []string{"2024-05-01", "2024-05-02", "2024-05-08"} {
		require.NoError(t, entries.UpsertMorning(ctx, testutil.NewTestMorningEntry("a1", date,
			testutil.WithTasks("write", "read"))))
	}
	require.NoError(t, entries.UpsertMorning(ctx, testutil.NewTestMorningEntry("a2", "2024-05-08")))

	w, err := svc.Week(ctx, "a1", testutil.Now)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", w.From)
	assert.Equal(t, "2024-05-08", w.To)
	assert.Equal(t, 2, w.Entries, "2024-05-01 is eight days back")
	assert.Equal(t, 4, w.TotalTasks)
}

func TestReportService_Habits(t *testing.T) {
	svc, entries := setupReports(t)
	ctx := context.Background()
	for _, date := range []string{"2024-05-06", "2024-05-07"} {
		e := testutil.NewTestMorningEntry("a1", date, testutil.WithEveningCompleted())
		e.Exercised = true
		e.AteWell = date == "2024-05-07"
		e.SleepTime = "23:00"
		require.NoError(t, entries.UpsertEvening(ctx, e))
	}

	h, err := svc.Habits(ctx, "a1", testutil.Now)
	require.NoError(t, err)
	assert.Equal(t, 2, h.ExerciseStreak)
	assert.Equal(t, 1, h.EatingStreak)
	assert.Equal(t, 2, h.WeekExercise)
	assert.Equal(t, "23:00", h.AvgSleep)
	assert.Empty(t, h.AvgWake)
}

func TestReportService_EmptyWeek(t *testing.T) {
	svc, _ := setupReports(t)
	w, err := svc.Week(context.Background(), "a1", testutil.Now)
	require.NoError(t, err)
	assert.Zero(t, w.Entries)
	assert.Zero(t, w.CompletionRate())
}
