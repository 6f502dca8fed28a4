package ritual

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/arbr39/kaizen/internal/calendar"
	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/service"
)

var taskSteps = [3]string{"task_1", "task_2", "task_3"}

func (s *Set) morning() *dialog.Definition {
	return &dialog.Definition{
		Name:    string(domain.RitualMorning),
		Title:   "Morning kaizen",
		Start:   "wake_time",
		Prepare: s.seedDate,
		Steps: []*dialog.Step{
			{
				Name:      "wake_time",
				Prompt:    prompt("What time did you wake up today? (HH:MM)"),
				Input:     clockTime(),
				Skippable: true,
				Next:      next("energy_plus"),
			},
			{
				Name:      "energy_plus",
				Prompt:    prompt("What gave you energy yesterday?"),
				Input:     freeText(),
				Skippable: true,
				Next:      next("energy_minus"),
			},
			{
				Name:      "energy_minus",
				Prompt:    prompt("What drained your energy yesterday?"),
				Input:     freeText(),
				Skippable: true,
				Next:      next("task_1"),
			},
			{
				Name:      "task_1",
				Prompt:    prompt("Task #1 for today (the most important one)"),
				Input:     freeText(),
				Skippable: true,
				Next:      next("task_2"),
			},
			{
				Name:      "task_2",
				Prompt:    prompt("Task #2 for today"),
				Input:     freeText(),
				Skippable: true,
				Next:      next("task_3"),
			},
			{
				Name:      "task_3",
				Prompt:    prompt("Task #3 for today"),
				Input:     freeText(),
				Skippable: true,
				Next: func(v dialog.View) string {
					if len(morningTaskChoices(v)) == 0 {
						return dialog.Terminal
					}
					return "priority"
				},
			},
			{
				Name:      "priority",
				Prompt:    prompt("Which task is today's priority? Do it first."),
				Input:     dialog.Input{Kind: dialog.InputChoice, Choices: morningTaskChoices},
				Skippable: true,
				Next:      next(dialog.Terminal),
			},
		},
		Complete: s.completeMorning,
	}
}

// morningTaskChoices offers the tasks entered so far, keyed by slot.
func morningTaskChoices(v dialog.View) []dialog.Choice {
	var out []dialog.Choice
	for i, step := range taskSteps {
		if v.Answered(step) {
			out = append(out, dialog.Choice{ID: strconv.Itoa(i + 1), Label: v.Value(step)})
		}
	}
	return out
}

func (s *Set) completeMorning(ctx context.Context, c dialog.Completion) (dialog.Outcome, error) {
	date := c.Param("date")
	day, err := s.parseDate(date)
	if err != nil {
		return dialog.Outcome{}, err
	}

	entry, err := s.deps.Entries.Get(ctx, c.AccountID, date)
	if errors.Is(err, repository.ErrNotFound) {
		entry = &domain.DailyEntry{AccountID: c.AccountID, Date: date, CreatedAt: c.CompletedAt}
	} else if err != nil {
		return dialog.Outcome{}, err
	}

	entry.WakeTime = normalizeClock(c.Value("wake_time"))
	entry.EnergyPlus = c.Value("energy_plus")
	entry.EnergyMinus = c.Value("energy_minus")
	for i, step := range taskSteps {
		entry.Tasks[i] = c.Value(step)
	}
	entry.PriorityTask, _ = strconv.Atoi(c.Value("priority"))
	at := c.CompletedAt
	entry.MorningCompleted = true
	entry.MorningAt = &at
	entry.UpdatedAt = at
	if err := s.deps.Entries.UpsertMorning(ctx, entry); err != nil {
		return dialog.Outcome{}, err
	}

	var paid earnings
	err = s.earn(ctx, &paid, "morning kaizen", service.EarnRequest{
		AccountID:   c.AccountID,
		Trigger:     domain.TriggerMorningKaizen,
		DedupKey:    domain.DedupKey(domain.TriggerMorningKaizen, date),
		Description: "Morning kaizen " + date,
		RefType:     "daily_entry",
		RefID:       date,
	})
	if err != nil {
		return dialog.Outcome{}, err
	}

	synced := s.syncTasks(ctx, entry, day)

	head := fmt.Sprintf("Morning kaizen saved. %d task(s) planned for today.", entry.TaskCount())
	if synced > 0 {
		head += fmt.Sprintf(" %d added to your calendar.", synced)
	}
	return dialog.Outcome{Summary: paid.summary(head)}, nil
}

// syncTasks puts the day's tasks on the calendar and returns how many
// events were created. Calendar failures are logged and never fail the
// ritual.
func (s *Set) syncTasks(ctx context.Context, entry *domain.DailyEntry, day time.Time) int {
	created := 0
	for _, te := range calendar.PlanTaskEvents(day, entry.Tasks, entry.PriorityTask, entry.TaskEventIDs) {
		id, err := s.deps.Calendar.CreateEvent(ctx, te.Event)
		if err != nil {
			s.deps.Logger.Warn("calendar event failed", "account", entry.AccountID, "slot", te.Slot, "error", err)
			continue
		}
		if id == "" {
			continue
		}
		if err := s.deps.Entries.SetTaskEventID(ctx, entry.AccountID, entry.Date, te.Slot, id); err != nil {
			s.deps.Logger.Warn("saving calendar event id failed", "account", entry.AccountID, "slot", te.Slot, "error", err)
			continue
		}
		entry.TaskEventIDs[te.Slot-1] = id
		created++
	}
	return created
}
