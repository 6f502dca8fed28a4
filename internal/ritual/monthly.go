package ritual

import (
	"context"
	"fmt"
	"strconv"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/service"
)

var principleSteps = func() []string {
	out := make([]string, domain.PrinciplesPerDay)
	for i := range out {
		out[i] = fmt.Sprintf("principle_%d", i+1)
	}
	return out
}()

func (s *Set) monthlyAssessment() *dialog.Definition {
	steps := make([]*dialog.Step, len(principleSteps))
	for i, name := range principleSteps {
		following := dialog.Terminal
		if i+1 < len(principleSteps) {
			following = principleSteps[i+1]
		}
		steps[i] = &dialog.Step{
			Name:      name,
			Prompt:    s.principlePrompt(i),
			Input:     dialog.Input{Kind: dialog.InputNumber, Min: 1, Max: 10},
			Skippable: true,
			Next:      next(following),
		}
	}
	return &dialog.Definition{
		Name:     string(domain.RitualMonthly),
		Title:    "Monthly principles assessment",
		Start:    principleSteps[0],
		Prepare:  s.prepareMonthly,
		Steps:    steps,
		Complete: s.completeMonthly,
	}
}

// principlePrompt renders the i-th principle of the session's day.
func (s *Set) principlePrompt(i int) func(dialog.View) string {
	return func(v dialog.View) string {
		day, _ := strconv.Atoi(v.Param("day"))
		numbers := domain.PrincipleNumbers(day)
		if i >= len(numbers) {
			return "Rate this principle from 1 to 10."
		}
		p := s.principle(numbers[i])
		return fmt.Sprintf("Day %d/%d, principle %d: %s\n%s\nHow well did you live it this month? (1-10)",
			day, domain.AssessmentDays, p.Number, p.Title, p.Text)
	}
}

func (s *Set) principle(number int) domain.Principle {
	for _, p := range s.principles {
		if p.Number == number {
			return p
		}
	}
	return domain.Principle{Number: number}
}

// prepareMonthly opens this month's assessment and picks the day to rate:
// the day param when given, otherwise the next unrated day.
func (s *Set) prepareMonthly(ctx context.Context, accountID string, params map[string]string) (map[string]string, error) {
	params, _ = s.seedDate(ctx, accountID, params)
	day, err := s.parseDate(params["date"])
	if err != nil {
		return nil, err
	}
	a, err := s.deps.Assessments.GetOrCreate(ctx, accountID, day.Year(), int(day.Month()), s.now())
	if err != nil {
		return nil, err
	}
	if a.Completed || a.CurrentDay > domain.AssessmentDays {
		return nil, dialog.Precondition("this month's assessment is already complete")
	}

	rateDay := a.CurrentDay
	if raw := params["day"]; raw != "" {
		rateDay, err = strconv.Atoi(raw)
		if err != nil || rateDay < 1 || rateDay > domain.AssessmentDays {
			return nil, dialog.Precondition(fmt.Sprintf("day must be between 1 and %d", domain.AssessmentDays))
		}
		if rateDay > a.CurrentDay {
			return nil, dialog.Precondition(fmt.Sprintf("finish day %d first", a.CurrentDay))
		}
	}

	params["assessment_id"] = a.ID
	params["year"] = strconv.Itoa(a.Year)
	params["month"] = strconv.Itoa(a.Month)
	params["day"] = strconv.Itoa(rateDay)
	return params, nil
}

func (s *Set) completeMonthly(ctx context.Context, c dialog.Completion) (dialog.Outcome, error) {
	year, _ := strconv.Atoi(c.Param("year"))
	month, _ := strconv.Atoi(c.Param("month"))
	day, _ := strconv.Atoi(c.Param("day"))
	numbers := domain.PrincipleNumbers(day)
	if numbers == nil {
		return dialog.Outcome{}, fmt.Errorf("assessment day %d out of range", day)
	}

	a, err := s.deps.Assessments.GetOrCreate(ctx, c.AccountID, year, month, c.CompletedAt)
	if err != nil {
		return dialog.Outcome{}, err
	}

	var ratings []domain.PrincipleRating
	for i, step := range principleSteps {
		if !c.Answered(step) {
			continue
		}
		score, err := strconv.Atoi(c.Value(step))
		if err != nil {
			return dialog.Outcome{}, fmt.Errorf("principle %d score %q: %w", numbers[i], c.Value(step), err)
		}
		ratings = append(ratings, domain.PrincipleRating{
			AssessmentID: a.ID,
			Number:       numbers[i],
			Score:        score,
			RatedOn:      c.Param("date"),
		})
	}
	if err := s.deps.Assessments.SaveRatings(ctx, ratings); err != nil {
		return dialog.Outcome{}, err
	}

	if day == a.CurrentDay {
		a.CurrentDay++
	}
	a.UpdatedAt = c.CompletedAt

	var paid earnings
	head := fmt.Sprintf("Day %d of %d saved (%d rated).", day, domain.AssessmentDays, len(ratings))
	if a.CurrentDay > domain.AssessmentDays && !a.Completed {
		all, err := s.deps.Assessments.ListRatings(ctx, a.ID)
		if err != nil {
			return dialog.Outcome{}, err
		}
		at := c.CompletedAt
		a.AverageScore = domain.AverageScoreX10(all)
		a.Completed = true
		a.CompletedAt = &at
		head = "Monthly assessment complete."
		if a.AverageScore != nil {
			head += fmt.Sprintf(" Average score: %d.%d.", *a.AverageScore/10, *a.AverageScore%10)
		}
	}
	if err := s.deps.Assessments.Update(ctx, a); err != nil {
		return dialog.Outcome{}, err
	}

	if !a.Completed {
		return dialog.Outcome{Summary: head}, nil
	}
	period := fmt.Sprintf("%04d-%02d", year, month)
	err = s.earn(ctx, &paid, "monthly assessment", service.EarnRequest{
		AccountID:   c.AccountID,
		Trigger:     domain.TriggerMonthlyAssessment,
		DedupKey:    domain.DedupKey(domain.TriggerMonthlyAssessment, period),
		Description: "Monthly assessment " + period,
		RefType:     "monthly_assessment",
		RefID:       a.ID,
	})
	if err != nil {
		return dialog.Outcome{}, err
	}
	return dialog.Outcome{Summary: paid.summary(head)}, nil
}
