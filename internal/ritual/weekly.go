package ritual

import (
	"context"
	"fmt"
	"strconv"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/service"
)

func (s *Set) weeklyReview() *dialog.Definition {
	return &dialog.Definition{
		Name:    string(domain.RitualWeekly),
		Title:   "Weekly review",
		Start:   "inbox",
		Prepare: s.prepareWeekly,
		Steps: []*dialog.Step{
			{
				Name: "inbox",
				Prompt: func(v dialog.View) string {
					return fmt.Sprintf("You have %s item(s) in your inbox. Is the inbox processed?", v.Param("pending"))
				},
				Input: dialog.Input{Kind: dialog.InputChoice, Choices: yesNo},
				Next:  next("goals"),
			},
			{
				Name:   "goals",
				Prompt: prompt("Have you reviewed your goals and projects?"),
				Input:  dialog.Input{Kind: dialog.InputChoice, Choices: yesNo},
				Next:   next("someday"),
			},
			{
				Name: "someday",
				Prompt: func(v dialog.View) string {
					return fmt.Sprintf("Someday/maybe holds %s item(s). Have you looked through them?", v.Param("someday"))
				},
				Input: dialog.Input{Kind: dialog.InputChoice, Choices: yesNo},
				Next:  next("wins"),
			},
			{
				Name:   "wins",
				Prompt: prompt("What were this week's wins?"),
				Input:  freeText(),
				Next:   next("learnings"),
			},
			{
				Name:   "learnings",
				Prompt: prompt("What did you learn this week?"),
				Input:  freeText(),
				Next:   next("plan"),
			},
			{
				Name:      "plan",
				Prompt:    prompt("What is the focus for next week?"),
				Input:     freeText(),
				Skippable: true,
				Next:      next(dialog.Terminal),
			},
		},
		Complete: s.completeWeekly,
	}
}

func (s *Set) prepareWeekly(ctx context.Context, accountID string, params map[string]string) (map[string]string, error) {
	params, _ = s.seedDate(ctx, accountID, params)
	day, err := s.parseDate(params["date"])
	if err != nil {
		return nil, err
	}
	params["week_start"] = domain.DateKey(domain.WeekStart(day))

	pending, err := s.deps.Inbox.List(ctx, accountID, domain.InboxPending)
	if err != nil {
		return nil, err
	}
	someday, err := s.deps.Inbox.List(ctx, accountID, domain.InboxSomeday)
	if err != nil {
		return nil, err
	}
	params["pending"] = strconv.Itoa(len(pending))
	params["someday"] = strconv.Itoa(len(someday))
	return params, nil
}

func (s *Set) completeWeekly(ctx context.Context, c dialog.Completion) (dialog.Outcome, error) {
	weekStart := c.Param("week_start")
	at := c.CompletedAt
	review := &domain.WeeklyReview{
		AccountID:       c.AccountID,
		WeekStart:       weekStart,
		InboxProcessed:  c.Value("inbox") == "yes",
		GoalsReviewed:   c.Value("goals") == "yes",
		SomedayReviewed: c.Value("someday") == "yes",
		Wins:            c.Value("wins"),
		Learnings:       c.Value("learnings"),
		Plan:            c.Value("plan"),
		Completed:       true,
		CompletedAt:     &at,
		CreatedAt:       at,
		UpdatedAt:       at,
	}
	if err := s.deps.Weekly.Upsert(ctx, review); err != nil {
		return dialog.Outcome{}, err
	}

	var paid earnings
	err := s.earn(ctx, &paid, "weekly review", service.EarnRequest{
		AccountID:   c.AccountID,
		Trigger:     domain.TriggerWeeklyReview,
		DedupKey:    domain.DedupKey(domain.TriggerWeeklyReview, weekStart),
		Description: "Weekly review for week of " + weekStart,
		RefType:     "weekly_review",
		RefID:       weekStart,
	})
	if err != nil {
		return dialog.Outcome{}, err
	}
	return dialog.Outcome{Summary: paid.summary("Weekly review saved for the week of " + weekStart + ".")}, nil
}
