package bot

import (
	"fmt"
	"strings"

	"github.com/arbr39/kaizen/internal/domain"
)

const (
	barWidth    = 10
	reportQuote = 50
)

// WeekReportText renders the seven-day summary sent by /week and by the
// Sunday report.
func WeekReportText(w *domain.WeekStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Your week** (%s to %s)\n", w.From, w.To)
	fmt.Fprintf(&b, "Days with entries: %d/%d\n", w.Entries, domain.ReportDays)
	fmt.Fprintf(&b, "Morning kaizens: %d\nEvening reflections: %d\n", w.Mornings, w.Evenings)

	if w.TotalTasks > 0 {
		rate := w.CompletionRate()
		fmt.Fprintf(&b, "\nTasks: %d/%d (%d%%)\n%s\n", w.CompletedTasks, w.TotalTasks, rate, bar(rate))
	}
	list(&b, "What gave you energy", w.EnergyPlus)
	list(&b, "What drained it", w.EnergyMinus)
	list(&b, "Insights", w.Insights)
	return strings.TrimRight(b.String(), "\n")
}

// HabitsText renders /habits.
func HabitsText(h *domain.HabitStats) string {
	var b strings.Builder
	b.WriteString("**Habits**\n")
	fmt.Fprintf(&b, "Exercise: %s streak, %d/%d this week\n", days(h.ExerciseStreak), h.WeekExercise, domain.ReportDays)
	fmt.Fprintf(&b, "Eating well: %s streak, %d/%d this week\n", days(h.EatingStreak), h.WeekEating, domain.ReportDays)
	fmt.Fprintf(&b, "Average wake-up: %s\nAverage bedtime: %s", orDash(h.AvgWake), orDash(h.AvgSleep))
	return b.String()
}

func bar(pct int) string {
	filled := min(max(pct/barWidth, 0), barWidth)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "  • %s\n", clip(it, reportQuote))
	}
}

// clip shortens s to n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
