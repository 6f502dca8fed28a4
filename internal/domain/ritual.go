package domain

import "time"

// Ritual identifies one of the structured reflection dialogs.
type Ritual string

const (
	RitualMorning Ritual = "morning_kaizen"
	RitualEvening Ritual = "evening_reflection"
	RitualInbox   Ritual = "inbox_triage"
	RitualWeekly  Ritual = "weekly_review"
	RitualMonthly Ritual = "monthly_assessment"
)

// Rituals lists every ritual in presentation order.
func Rituals() []Ritual {
	return []Ritual{RitualMorning, RitualEvening, RitualInbox, RitualWeekly, RitualMonthly}
}

func (r Ritual) Valid() bool {
	for _, known := range Rituals() {
		if r == known {
			return true
		}
	}
	return false
}

// DailyEntry holds one account's morning and evening answers for a date.
type DailyEntry struct {
	AccountID string
	Date      string // DateLayout

	WakeTime         string
	EnergyPlus       string
	EnergyMinus      string
	Tasks            [3]string
	PriorityTask     int // 1..3, 0 when unset
	MorningCompleted bool
	MorningAt        *time.Time

	TasksDone        [3]bool
	Insight          string
	Improve          string
	Exercised        bool
	AteWell          bool
	SleepTime        string
	EveningCompleted bool
	EveningAt        *time.Time

	TaskEventIDs [3]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskCount returns how many of the three task slots are filled.
func (e *DailyEntry) TaskCount() int {
	n := 0
	for _, t := range e.Tasks {
		if t != "" {
			n++
		}
	}
	return n
}

// PriorityDone reports whether the designated priority task was completed.
func (e *DailyEntry) PriorityDone() bool {
	return e.PriorityTask >= 1 && e.PriorityTask <= 3 && e.TasksDone[e.PriorityTask-1]
}

// InboxStatus is the triage lifecycle of a captured inbox item.
type InboxStatus string

const (
	InboxPending   InboxStatus = "pending"
	InboxProcessed InboxStatus = "processed"
	InboxSomeday   InboxStatus = "someday"
	InboxDeleted   InboxStatus = "deleted"
)

// Energy and time-estimate tags used on inbox items.
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"

	Time5Min  = "5min"
	Time15Min = "15min"
	Time30Min = "30min"
	Time1Hour = "1hour"
)

type InboxItem struct {
	ID           string
	AccountID    string
	Text         string
	Energy       string
	TimeEstimate string
	Status       InboxStatus
	ProcessedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type WeeklyReview struct {
	AccountID       string
	WeekStart       string // DateLayout, always a Monday
	InboxProcessed  bool
	GoalsReviewed   bool
	SomedayReviewed bool
	Wins            string
	Learnings       string
	Plan            string
	Completed       bool
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Assessment layout: PrinciplesPerDay principles rated on each of
// AssessmentDays days.
const (
	PrinciplesPerDay = 5
	AssessmentDays   = 5
	PrincipleCount   = PrinciplesPerDay * AssessmentDays
)

type MonthlyAssessment struct {
	ID           string
	AccountID    string
	Year         int
	Month        int
	CurrentDay   int // next day to rate; AssessmentDays+1 once finished
	AverageScore *int
	Completed    bool
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrincipleNumbers returns the 1-based principle numbers rated on day.
func PrincipleNumbers(day int) []int {
	if day < 1 || day > AssessmentDays {
		return nil
	}
	out := make([]int, 0, PrinciplesPerDay)
	for i := 1; i <= PrinciplesPerDay; i++ {
		out = append(out, (day-1)*PrinciplesPerDay+i)
	}
	return out
}

type PrincipleRating struct {
	AssessmentID string
	Number       int
	Score        int
	RatedOn      string
}

// AverageScoreX10 returns the mean score multiplied by ten and rounded, the
// stored precision for MonthlyAssessment.AverageScore.
func AverageScoreX10(ratings []PrincipleRating) *int {
	if len(ratings) == 0 {
		return nil
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Score
	}
	avg := (sum*10*2 + len(ratings)) / (2 * len(ratings))
	return &avg
}

type Principle struct {
	Number int    `yaml:"number"`
	Title  string `yaml:"title"`
	Text   string `yaml:"text"`
}
