package ritual

import (
	"context"
	"errors"
	"fmt"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
)

var (
	energyChoices = fixedChoices(
		dialog.Choice{ID: domain.EnergyLow, Label: "Low"},
		dialog.Choice{ID: domain.EnergyMedium, Label: "Medium"},
		dialog.Choice{ID: domain.EnergyHigh, Label: "High"},
	)
	timeChoices = fixedChoices(
		dialog.Choice{ID: domain.Time5Min, Label: "5 min"},
		dialog.Choice{ID: domain.Time15Min, Label: "15 min"},
		dialog.Choice{ID: domain.Time30Min, Label: "30 min"},
		dialog.Choice{ID: domain.Time1Hour, Label: "1 hour"},
	)
	actionChoices = fixedChoices(
		dialog.Choice{ID: "keep", Label: "Keep in inbox"},
		dialog.Choice{ID: "someday", Label: "Someday/maybe"},
		dialog.Choice{ID: "delete", Label: "Delete"},
	)
	doneNowChoices = fixedChoices(
		dialog.Choice{ID: "done", Label: "Done"},
		dialog.Choice{ID: "later", Label: "Later"},
	)
)

func (s *Set) inboxTriage() *dialog.Definition {
	return &dialog.Definition{
		Name:    string(domain.RitualInbox),
		Title:   "Inbox triage",
		Start:   "two_minute",
		Prepare: s.prepareInbox,
		Steps: []*dialog.Step{
			{
				Name: "two_minute",
				Prompt: func(v dialog.View) string {
					return fmt.Sprintf("%q\nCan it be done in two minutes?", v.Param("text"))
				},
				Input: dialog.Input{Kind: dialog.InputChoice, Choices: yesNo},
				Next: func(v dialog.View) string {
					if v.Value("two_minute") == "yes" {
						return "done_now"
					}
					return "energy"
				},
			},
			{
				Name:   "done_now",
				Prompt: prompt("Do it now. Tell me when it's done."),
				Input:  dialog.Input{Kind: dialog.InputChoice, Choices: doneNowChoices},
				Next:   next(dialog.Terminal),
			},
			{
				Name:      "energy",
				Prompt:    prompt("How much energy does it need?"),
				Input:     dialog.Input{Kind: dialog.InputChoice, Choices: energyChoices},
				Skippable: true,
				Next:      next("time"),
			},
			{
				Name:      "time",
				Prompt:    prompt("How long will it take?"),
				Input:     dialog.Input{Kind: dialog.InputChoice, Choices: timeChoices},
				Skippable: true,
				Next:      next("action"),
			},
			{
				Name:   "action",
				Prompt: prompt("What should happen to it?"),
				Input:  dialog.Input{Kind: dialog.InputChoice, Choices: actionChoices},
				Next:   next(dialog.Terminal),
			},
		},
		Complete: s.completeInbox,
	}
}

// prepareInbox picks the item: the item_id param when given, otherwise the
// oldest pending one.
func (s *Set) prepareInbox(ctx context.Context, accountID string, params map[string]string) (map[string]string, error) {
	id := params["item_id"]
	if id == "" {
		pending, err := s.deps.Inbox.List(ctx, accountID, domain.InboxPending)
		if err != nil {
			return nil, err
		}
		if len(pending) == 0 {
			return nil, dialog.Precondition("your inbox is empty")
		}
		id = pending[0].ID
	}

	item, err := s.deps.Inbox.Get(ctx, accountID, id)
	if errors.Is(err, domain.ErrInboxItemNotFound) {
		return nil, dialog.Precondition("inbox item not found")
	}
	if err != nil {
		return nil, err
	}
	if item.Status == domain.InboxProcessed {
		return nil, dialog.Precondition("that item is already done")
	}
	params["item_id"] = item.ID
	params["text"] = item.Text
	return params, nil
}

func (s *Set) completeInbox(ctx context.Context, c dialog.Completion) (dialog.Outcome, error) {
	itemID := c.Param("item_id")

	if c.Value("two_minute") == "yes" {
		if c.Value("done_now") != "done" {
			return dialog.Outcome{Summary: "Left in your inbox for later."}, nil
		}
		var paid earnings
		res, err := s.deps.Inbox.Complete(ctx, c.AccountID, itemID)
		if err != nil {
			return dialog.Outcome{}, fmt.Errorf("completing inbox item: %w", err)
		}
		paid.add("inbox task", res)
		return dialog.Outcome{Summary: paid.summary("Done. One less thing on your mind.")}, nil
	}

	var status domain.InboxStatus
	var summary string
	switch c.Value("action") {
	case "someday":
		status, summary = domain.InboxSomeday, "Moved to someday/maybe."
	case "delete":
		status, summary = domain.InboxDeleted, "Deleted."
	default:
		status, summary = domain.InboxPending, "Tagged and kept in your inbox."
	}
	if err := s.deps.Inbox.Triage(ctx, c.AccountID, itemID, c.Value("energy"), c.Value("time"), status); err != nil {
		return dialog.Outcome{}, fmt.Errorf("triaging inbox item: %w", err)
	}
	return dialog.Outcome{Summary: summary}, nil
}
