package ritual

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/testutil"
)

func TestEvening_RequiresMorning(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Begin(context.Background(), acct, string(domain.RitualEvening))
	requirePrecondition(t, err)
	assert.Contains(t, err.Error(), "morning kaizen first")
}

func TestEvening_PaysPerTriggerOnce(t *testing.T) {
	h := newHarness(t)
	h.completeMorning(t)
	require.Equal(t, int64(50), h.balance(t))

	reply := h.begin(t, domain.RitualEvening)
	require.Equal(t, "tasks_done", reply.Step)
	require.Len(t, reply.Choices, 3)

	reply = h.answer(t, "1,2", "focus beats hours", "", "yes", "no", "23:00")
	require.True(t, reply.Done)

	// evening 50 + one plain task 20 + priority 20+50 + exercise 30
	assert.Equal(t, int64(50+50+20+70+30), h.balance(t))
	assert.Contains(t, reply.Summary, "2 of 3 task(s) done")

	e := h.entry(t, "2024-05-08")
	assert.True(t, e.EveningCompleted)
	assert.Equal(t, [3]bool{true, true, false}, e.TasksDone)
	assert.True(t, e.Exercised)
	assert.False(t, e.AteWell)
	assert.Equal(t, "focus beats hours", e.Insight)
	assert.Equal(t, "write report", e.Tasks[0], "evening keeps the morning tasks")

	before := h.balance(t)
	h.begin(t, domain.RitualEvening)
	reply = h.answer(t, "1,2,3", "", "", "yes", "yes", "")
	require.True(t, reply.Done)

	// Only the newly true triggers pay: task_done with a new count is keyed
	// by date and was already paid, eating_well is new.
	assert.Equal(t, before+20, h.balance(t))
}

func TestEvening_NoTasksStartsAtInsight(t *testing.T) {
	h := newHarness(t)
	h.begin(t, domain.RitualMorning)
	h.answer(t, "", "", "", "", "", "")

	reply := h.begin(t, domain.RitualEvening)
	assert.Equal(t, "insight", reply.Step)

	reply = h.answer(t, "", "", "no", "no", "")
	require.True(t, reply.Done)
	assert.Equal(t, int64(100), h.balance(t))
}

func TestEvening_NothingDone(t *testing.T) {
	h := newHarness(t)
	h.completeMorning(t)

	h.begin(t, domain.RitualEvening)
	reply := h.answer(t, "-", "", "", "no", "no", "")
	require.True(t, reply.Done)

	assert.Equal(t, int64(100), h.balance(t))
	assert.Equal(t, [3]bool{}, h.entry(t, "2024-05-08").TasksDone)
}

func TestEvening_StreakBonusFromThirdDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, date := range []string{"2024-05-06", "2024-05-07"} {
		e := testutil.NewTestMorningEntry(acct, date, testutil.WithEveningCompleted())
		require.NoError(t, h.entries.UpsertMorning(ctx, e))
		require.NoError(t, h.entries.UpsertEvening(ctx, e))
	}
	h.begin(t, domain.RitualMorning)
	h.answer(t, "", "", "", "", "", "")

	h.begin(t, domain.RitualEvening)
	reply := h.answer(t, "", "", "no", "no", "")
	require.True(t, reply.Done)

	// morning 50 + evening 50 + streak 3 * 10
	assert.Equal(t, int64(130), h.balance(t))
	assert.Contains(t, reply.Summary, "3-day streak")
}

func TestEvening_NoStreakBonusAfterGap(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, date := range []string{"2024-05-05", "2024-05-06"} {
		e := testutil.NewTestMorningEntry(acct, date, testutil.WithEveningCompleted())
		require.NoError(t, h.entries.UpsertMorning(ctx, e))
		require.NoError(t, h.entries.UpsertEvening(ctx, e))
	}
	h.begin(t, domain.RitualMorning)
	h.answer(t, "", "", "", "", "", "")

	h.begin(t, domain.RitualEvening)
	h.answer(t, "", "", "no", "no", "")

	assert.Equal(t, int64(100), h.balance(t))
}

func TestEvening_AfterMidnightStaysOnStartDay(t *testing.T) {
	h := newHarness(t)
	h.completeMorning(t)

	h.now = time.Date(2024, 5, 8, 23, 50, 0, 0, time.UTC)
	h.begin(t, domain.RitualEvening)
	h.now = h.now.Add(20 * time.Minute)
	reply := h.answer(t, "1", "", "", "no", "no", "")
	require.True(t, reply.Done)

	assert.True(t, h.entry(t, "2024-05-08").EveningCompleted)
}
