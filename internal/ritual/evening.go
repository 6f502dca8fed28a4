package ritual

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/service"
)

const (
	streakBonusMin = 3
	streakHorizon  = 366
)

func (s *Set) evening() *dialog.Definition {
	return &dialog.Definition{
		Name:    string(domain.RitualEvening),
		Title:   "Evening reflection",
		Start:   "tasks_done",
		Guard:   s.requireMorning,
		Prepare: s.prepareEvening,
		Entry: func(v dialog.View) string {
			if len(eveningTaskChoices(v)) == 0 {
				return "insight"
			}
			return "tasks_done"
		},
		Steps: []*dialog.Step{
			{
				Name:   "tasks_done",
				Prompt: prompt("Which of today's tasks did you finish? Send \"-\" for none."),
				Input: dialog.Input{
					Kind:       dialog.InputChoice,
					Choices:    eveningTaskChoices,
					Multi:      true,
					AllowEmpty: true,
				},
				Next: next("insight"),
			},
			{
				Name:      "insight",
				Prompt:    prompt("What was today's main insight?"),
				Input:     freeText(),
				Skippable: true,
				Next:      next("improve"),
			},
			{
				Name:      "improve",
				Prompt:    prompt("What would you do better tomorrow?"),
				Input:     freeText(),
				Skippable: true,
				Next:      next("exercised"),
			},
			{
				Name:   "exercised",
				Prompt: prompt("Did you exercise today?"),
				Input:  dialog.Input{Kind: dialog.InputChoice, Choices: yesNo},
				Next:   next("ate_well"),
			},
			{
				Name:   "ate_well",
				Prompt: prompt("Did you eat well today?"),
				Input:  dialog.Input{Kind: dialog.InputChoice, Choices: yesNo},
				Next:   next("sleep_time"),
			},
			{
				Name:      "sleep_time",
				Prompt:    prompt("When are you going to sleep? (HH:MM)"),
				Input:     clockTime(),
				Skippable: true,
				Next:      next(dialog.Terminal),
			},
		},
		Complete: s.completeEvening,
	}
}

func (s *Set) requireMorning(ctx context.Context, accountID string) error {
	entry, err := s.deps.Entries.Get(ctx, accountID, s.today())
	if errors.Is(err, repository.ErrNotFound) {
		return dialog.Precondition("complete the morning kaizen first")
	}
	if err != nil {
		return err
	}
	if !entry.MorningCompleted {
		return dialog.Precondition("complete the morning kaizen first")
	}
	return nil
}

// prepareEvening copies the morning tasks into the session so the task
// checklist does not change if the entry is edited mid-dialog.
func (s *Set) prepareEvening(ctx context.Context, accountID string, params map[string]string) (map[string]string, error) {
	params, _ = s.seedDate(ctx, accountID, params)
	entry, err := s.deps.Entries.Get(ctx, accountID, params["date"])
	if errors.Is(err, repository.ErrNotFound) {
		return params, nil
	}
	if err != nil {
		return nil, err
	}
	for i, step := range taskSteps {
		params[step] = entry.Tasks[i]
	}
	params["priority"] = strconv.Itoa(entry.PriorityTask)
	return params, nil
}

func eveningTaskChoices(v dialog.View) []dialog.Choice {
	var out []dialog.Choice
	for i, step := range taskSteps {
		if task := v.Param(step); task != "" {
			out = append(out, dialog.Choice{ID: strconv.Itoa(i + 1), Label: task})
		}
	}
	return out
}

func (s *Set) completeEvening(ctx context.Context, c dialog.Completion) (dialog.Outcome, error) {
	date := c.Param("date")
	day, err := s.parseDate(date)
	if err != nil {
		return dialog.Outcome{}, err
	}

	entry := &domain.DailyEntry{AccountID: c.AccountID, Date: date, CreatedAt: c.CompletedAt}
	entry.Tasks = [3]string{c.Param("task_1"), c.Param("task_2"), c.Param("task_3")}
	entry.PriorityTask, _ = strconv.Atoi(c.Param("priority"))
	for _, id := range splitValues(c.Value("tasks_done")) {
		slot, err := strconv.Atoi(id)
		if err == nil && slot >= 1 && slot <= 3 {
			entry.TasksDone[slot-1] = true
		}
	}
	entry.Insight = c.Value("insight")
	entry.Improve = c.Value("improve")
	entry.Exercised = c.Value("exercised") == "yes"
	entry.AteWell = c.Value("ate_well") == "yes"
	entry.SleepTime = normalizeClock(c.Value("sleep_time"))
	at := c.CompletedAt
	entry.EveningCompleted = true
	entry.EveningAt = &at
	entry.UpdatedAt = at
	if err := s.deps.Entries.UpsertEvening(ctx, entry); err != nil {
		return dialog.Outcome{}, err
	}

	var paid earnings
	req := func(t domain.Trigger, desc string) service.EarnRequest {
		return service.EarnRequest{
			AccountID:   c.AccountID,
			Trigger:     t,
			DedupKey:    domain.DedupKey(t, date),
			Description: desc + " " + date,
			RefType:     "daily_entry",
			RefID:       date,
		}
	}

	if err := s.earn(ctx, &paid, "evening reflection", req(domain.TriggerEveningReflection, "Evening reflection")); err != nil {
		return dialog.Outcome{}, err
	}

	done := 0
	for i, ok := range entry.TasksDone {
		if ok && i+1 != entry.PriorityTask {
			done++
		}
	}
	if done > 0 {
		r := req(domain.TriggerTaskDone, "Tasks done")
		r.Context.Count = done
		if err := s.earn(ctx, &paid, fmt.Sprintf("%d task(s) done", done), r); err != nil {
			return dialog.Outcome{}, err
		}
	}
	if entry.PriorityDone() {
		if err := s.earn(ctx, &paid, "priority task done", req(domain.TriggerPriorityTaskDone, "Priority task done")); err != nil {
			return dialog.Outcome{}, err
		}
	}
	if entry.Exercised {
		if err := s.earn(ctx, &paid, "exercise", req(domain.TriggerExercise, "Exercise")); err != nil {
			return dialog.Outcome{}, err
		}
	}
	if entry.AteWell {
		if err := s.earn(ctx, &paid, "eating well", req(domain.TriggerEatingWell, "Eating well")); err != nil {
			return dialog.Outcome{}, err
		}
	}

	from, to := domain.LastNDays(day, streakHorizon)
	evenings, err := s.deps.Entries.EveningCompletedDates(ctx, c.AccountID, from, to)
	if err != nil {
		return dialog.Outcome{}, err
	}
	streak := domain.Streak(evenings, day)
	if streak >= streakBonusMin {
		r := req(domain.TriggerStreakBonus, fmt.Sprintf("%d-day streak", streak))
		r.Context.StreakDays = streak
		if err := s.earn(ctx, &paid, fmt.Sprintf("%d-day streak", streak), r); err != nil {
			return dialog.Outcome{}, err
		}
	}

	head := "Evening reflection saved."
	if n := entry.TaskCount(); n > 0 {
		finished := 0
		for _, ok := range entry.TasksDone {
			if ok {
				finished++
			}
		}
		head = fmt.Sprintf("Evening reflection saved. %d of %d task(s) done.", finished, n)
	}
	if streak > 1 {
		head += fmt.Sprintf(" Streak: %d days.", streak)
	}
	return dialog.Outcome{Summary: paid.summary(head)}, nil
}

func splitValues(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
