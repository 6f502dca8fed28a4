package domain

import "time"

// DateLayout is the storage format for calendar dates.
const DateLayout = "2006-01-02"

// DateKey formats t's calendar date in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// LastNDays returns the inclusive date range [end-(n-1), end]: exactly n
// calendar days ending on end. n < 1 is treated as 1.
func LastNDays(end time.Time, n int) (from, to string) {
	if n < 1 {
		n = 1
	}
	return DateKey(end.AddDate(0, 0, -(n - 1))), DateKey(end)
}

// WeekStart returns the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Streak counts consecutive dates in done ending at end. If end itself is
// not in done the streak is zero.
func Streak(done map[string]bool, end time.Time) int {
	n := 0
	for day := end; done[DateKey(day)]; day = day.AddDate(0, 0, -1) {
		n++
	}
	return n
}

// LongestStreak returns the longest run of consecutive dates in done.
func LongestStreak(done map[string]bool) int {
	best := 0
	for key := range done {
		day, err := time.Parse(DateLayout, key)
		if err != nil {
			continue
		}
		// Only start counting at the first day of a run.
		if done[DateKey(day.AddDate(0, 0, -1))] {
			continue
		}
		run := 0
		for d := day; done[DateKey(d)]; d = d.AddDate(0, 0, 1) {
			run++
		}
		if run > best {
			best = run
		}
	}
	return best
}
