package formatter

import (
	"fmt"
	"strings"

	"github.com/arbr39/kaizen/internal/domain"
)

// FormatWeek renders the seven-day summary panel.
func FormatWeek(w *domain.WeekStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s to %s\n", Dim("Window       "), w.From, w.To)
	fmt.Fprintf(&b, "%s %d/%d\n", Dim("Entries      "), w.Entries, domain.ReportDays)
	fmt.Fprintf(&b, "%s %d\n", Dim("Mornings     "), w.Mornings)
	fmt.Fprintf(&b, "%s %d", Dim("Evenings     "), w.Evenings)
	if w.TotalTasks > 0 {
		pct := float64(w.CompletedTasks) / float64(w.TotalTasks)
		fmt.Fprintf(&b, "\n%s %d/%d %s", Dim("Tasks        "), w.CompletedTasks, w.TotalTasks, RenderProgress(pct, 10))
	}
	for _, sec := range []struct {
		title string
		items []string
	}{
		{"Energy +", w.EnergyPlus},
		{"Energy -", w.EnergyMinus},
		{"Insights", w.Insights},
	} {
		if len(sec.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n\n%s", Bold(sec.title))
		for _, it := range sec.items {
			fmt.Fprintf(&b, "\n  • %s", Truncate(it, 50))
		}
	}
	return RenderBox("week", b.String())
}

// FormatHabits renders exercise, eating and sleep averages.
func FormatHabits(h *domain.HabitStats) string {
	rows := [][]string{
		{"exercise", streak(h.ExerciseStreak), fmt.Sprintf("%d/%d", h.WeekExercise, domain.ReportDays)},
		{"eating well", streak(h.EatingStreak), fmt.Sprintf("%d/%d", h.WeekEating, domain.ReportDays)},
	}
	table := RenderTable([]string{"HABIT", "STREAK", "THIS WEEK"}, rows)
	return fmt.Sprintf("%s\n%s %s\n%s %s", table,
		Dim("Avg wake-up "), orDash(h.AvgWake),
		Dim("Avg bedtime "), orDash(h.AvgSleep))
}

func streak(n int) string {
	if n == 0 {
		return Dim("none")
	}
	return StylePurple.Render(fmt.Sprintf("%d day(s)", n))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
