package ritual

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
)

func TestMorning_SavesEntryPaysAndSchedulesTasks(t *testing.T) {
	h := newHarness(t)

	reply := h.begin(t, domain.RitualMorning)
	assert.Equal(t, "wake_time", reply.Step)

	reply = h.answer(t, "7:05", "good sleep", "late scrolling", "write report", "gym", "call mom")
	require.Equal(t, "priority", reply.Step)
	require.Len(t, reply.Choices, 3)
	assert.Equal(t, "gym", reply.Choices[1].Label)

	reply = h.answer(t, "2")
	require.True(t, reply.Done)
	assert.Contains(t, reply.Summary, "+50 morning kaizen")

	e := h.entry(t, "2024-05-08")
	assert.True(t, e.MorningCompleted)
	assert.Equal(t, "07:05", e.WakeTime)
	assert.Equal(t, [3]string{"write report", "gym", "call mom"}, e.Tasks)
	assert.Equal(t, 2, e.PriorityTask)
	assert.Equal(t, [3]string{"evt-1", "evt-2", "evt-3"}, e.TaskEventIDs)

	assert.Equal(t, int64(50), h.balance(t))

	require.Len(t, h.cal.events, 3)
	assert.Equal(t, "write report", h.cal.events[0].Summary)
	assert.Equal(t, 9, h.cal.events[0].Start.Hour())
	assert.Equal(t, "gym", h.cal.events[1].Summary)
	assert.Equal(t, 8, h.cal.events[1].Start.Hour(), "priority task goes first")
	assert.Equal(t, "Task #2 for 08.05.2024", h.cal.events[1].Description)
	assert.Equal(t, 11, h.cal.events[2].Start.Hour())
	assert.Equal(t, time.Hour, h.cal.events[2].Duration)
}

func TestMorning_RepeatSameDayPaysOnceAndKeepsEvents(t *testing.T) {
	h := newHarness(t)
	h.completeMorning(t)
	require.Len(t, h.cal.events, 3)

	h.begin(t, domain.RitualMorning, dialog.WithRestart())
	reply := h.answer(t, "07:00", "", "", "write report v2", "gym", "call mom", "1")
	require.True(t, reply.Done)
	assert.Contains(t, reply.Summary, "Already rewarded")

	assert.Equal(t, int64(50), h.balance(t))
	assert.Len(t, h.cal.events, 3, "slots that already have events are not re-created")
	assert.Equal(t, "write report v2", h.entry(t, "2024-05-08").Tasks[0])
}

func TestMorning_NoTasksSkipsPriority(t *testing.T) {
	h := newHarness(t)
	h.begin(t, domain.RitualMorning)

	reply := h.answer(t, "", "", "", "", "", "")
	require.True(t, reply.Done)

	e := h.entry(t, "2024-05-08")
	assert.Equal(t, 0, e.TaskCount())
	assert.Equal(t, 0, e.PriorityTask)
	assert.Empty(t, h.cal.events)
	assert.Equal(t, int64(50), h.balance(t))
}

func TestMorning_CalendarFailureDoesNotFailRitual(t *testing.T) {
	h := newHarness(t)
	h.cal.fail = errors.New("calendar down")

	h.begin(t, domain.RitualMorning)
	reply := h.answer(t, "", "", "", "write report", "", "", "1")
	require.True(t, reply.Done)

	e := h.entry(t, "2024-05-08")
	assert.True(t, e.MorningCompleted)
	assert.Empty(t, e.TaskEventIDs[0])
	assert.Equal(t, int64(50), h.balance(t))
}

func TestMorning_InvalidWakeTimeReprompts(t *testing.T) {
	h := newHarness(t)
	h.begin(t, domain.RitualMorning)

	_, err := h.engine.Submit(context.Background(), acct, "25:99")
	require.Error(t, err)
	assert.True(t, dialog.IsInvalidInput(err))

	cur, err := h.engine.Current(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, "wake_time", cur.Step)
}

func TestMorning_DatePinnedAtBegin(t *testing.T) {
	h := newHarness(t)
	h.now = time.Date(2024, 5, 8, 23, 55, 0, 0, time.UTC)
	h.begin(t, domain.RitualMorning)

	h.now = h.now.Add(10 * time.Minute)
	reply := h.answer(t, "", "", "", "", "", "")
	require.True(t, reply.Done)

	_, err := h.entries.Get(context.Background(), acct, "2024-05-09")
	require.Error(t, err)
	assert.True(t, h.entry(t, "2024-05-08").MorningCompleted)
}
