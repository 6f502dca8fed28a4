package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ReportDays is the length of the weekly report window, today included.
const ReportDays = 7

// HabitHorizon bounds how far back habit streaks are counted.
const HabitHorizon = 30

// reportItems caps each energy and insight list in a week report.
const reportItems = 3

// WeekStats summarises the daily entries of the last ReportDays days.
type WeekStats struct {
	From string // DateLayout, inclusive
	To   string // DateLayout, inclusive

	Entries  int
	Mornings int
	Evenings int

	TotalTasks     int
	CompletedTasks int

	// Newest first, at most three each.
	EnergyPlus  []string
	EnergyMinus []string
	Insights    []string
}

// CompletionRate returns the share of filled task slots marked done, as a
// whole percentage. Zero when no tasks were planned.
func (w *WeekStats) CompletionRate() int {
	if w.TotalTasks == 0 {
		return 0
	}
	return w.CompletedTasks * 100 / w.TotalTasks
}

// SummarizeWeek folds entries into WeekStats for the window ending on end.
// Entries outside the window are ignored.
func SummarizeWeek(entries []*DailyEntry, end time.Time) *WeekStats {
	from, to := LastNDays(end, ReportDays)
	w := &WeekStats{From: from, To: to}
	for _, e := range newestFirst(entries, from, to) {
		w.Entries++
		if e.MorningCompleted {
			w.Mornings++
		}
		if e.EveningCompleted {
			w.Evenings++
		}
		for i, task := range e.Tasks {
			if task == "" {
				continue
			}
			w.TotalTasks++
			if e.TasksDone[i] {
				w.CompletedTasks++
			}
		}
		w.EnergyPlus = appendCapped(w.EnergyPlus, e.EnergyPlus)
		w.EnergyMinus = appendCapped(w.EnergyMinus, e.EnergyMinus)
		w.Insights = appendCapped(w.Insights, e.Insight)
	}
	return w
}

// HabitStats covers exercise, eating and sleep.
type HabitStats struct {
	ExerciseStreak int
	EatingStreak   int

	// Counts over the last ReportDays days.
	WeekExercise int
	WeekEating   int

	// HH:MM, empty when nothing usable was recorded.
	AvgWake  string
	AvgSleep string
}

// SummarizeHabits computes HabitStats as of end. A streak runs through
// yesterday when today's evening has not been answered yet.
func SummarizeHabits(entries []*DailyEntry, end time.Time) *HabitStats {
	exercised := map[string]bool{}
	ateWell := map[string]bool{}
	answered := map[string]bool{}
	for _, e := range entries {
		if e.EveningCompleted {
			answered[e.Date] = true
		}
		if e.Exercised {
			exercised[e.Date] = true
		}
		if e.AteWell {
			ateWell[e.Date] = true
		}
	}

	streakEnd := end
	if !answered[DateKey(end)] {
		streakEnd = end.AddDate(0, 0, -1)
	}
	h := &HabitStats{
		ExerciseStreak: Streak(exercised, streakEnd),
		EatingStreak:   Streak(ateWell, streakEnd),
	}

	from, to := LastNDays(end, ReportDays)
	var wakes, sleeps []int
	for _, e := range newestFirst(entries, from, to) {
		if e.Exercised {
			h.WeekExercise++
		}
		if e.AteWell {
			h.WeekEating++
		}
		if m, ok := ParseClock(e.WakeTime); ok {
			wakes = append(wakes, m)
		}
		if m, ok := ParseClock(e.SleepTime); ok {
			// Bedtimes after midnight belong to the previous night.
			if m < 12*60 {
				m += 24 * 60
			}
			sleeps = append(sleeps, m)
		}
	}
	h.AvgWake = averageClock(wakes)
	h.AvgSleep = averageClock(sleeps)
	return h
}

// ParseClock reads "H:MM" or "HH:MM" as minutes after midnight.
func ParseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func averageClock(minutes []int) string {
	if len(minutes) == 0 {
		return ""
	}
	sum := 0
	for _, m := range minutes {
		sum += m
	}
	avg := (sum / len(minutes)) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", avg/60, avg%60)
}

func newestFirst(entries []*DailyEntry, from, to string) []*DailyEntry {
	out := make([]*DailyEntry, 0, len(entries))
	for _, e := range entries {
		if e.Date >= from && e.Date <= to {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func appendCapped(list []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || len(list) >= reportItems {
		return list
	}
	return append(list, s)
}
