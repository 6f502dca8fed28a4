// Package scheduler runs the cron side of the bot: ritual reminders, the
// Sunday report, the missed-evening penalty and idle session cleanup.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/arbr39/kaizen/internal/bot"
	"github.com/arbr39/kaizen/internal/domain"
	"github.com/arbr39/kaizen/internal/service"
)

// Notifier delivers a message to an account, e.g. as a Discord DM.
type Notifier interface {
	Notify(ctx context.Context, accountID, message string) error
}

// Accounts lists who to remind.
type Accounts interface {
	ListAccounts(ctx context.Context, activeOnly bool) ([]*domain.Account, error)
}

// Ledger is used for penalties.
type Ledger interface {
	Earn(ctx context.Context, req service.EarnRequest) (service.EarnResult, error)
}

// Sweeper drops idle dialog sessions. dialog.MemoryStore implements it.
type Sweeper interface {
	Sweep() int
}

// NudgeObserver counts delivered reminders.
type NudgeObserver interface {
	NudgeSent(ritual string)
}

// Schedule holds the cron specs. Empty specs disable their job.
type Schedule struct {
	Morning string
	Evening string
	Weekly  string
	Monthly string
	Report  string
	Penalty string
	Sweep   string
}

const jobTimeout = 2 * time.Minute

// Scheduler owns a cron instance and the jobs registered on it.
type Scheduler struct {
	cron     *cron.Cron
	accounts Accounts
	status   service.RitualStatusService
	ledger   Ledger
	notifier Notifier
	sweeper  Sweeper
	reports  service.ReportService
	observer NudgeObserver
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Scheduler)

func WithSweeper(s Sweeper) Option { return func(sc *Scheduler) { sc.sweeper = s } }

// WithReports enables the weekly report job.
func WithReports(r service.ReportService) Option { return func(sc *Scheduler) { sc.reports = r } }

func WithNudgeObserver(o NudgeObserver) Option { return func(sc *Scheduler) { sc.observer = o } }

func WithClock(now func() time.Time) Option { return func(sc *Scheduler) { sc.now = now } }

func WithLogger(l *slog.Logger) Option { return func(sc *Scheduler) { sc.logger = l } }

// New builds a scheduler that evaluates cron specs and "today" in loc.
func New(accounts Accounts, status service.RitualStatusService, ledger Ledger, notifier Notifier, loc *time.Location, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		accounts: accounts,
		status:   status,
		ledger:   ledger,
		notifier: notifier,
		loc:      loc,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	return s
}

// Register adds one cron entry per non-empty spec.
func (s *Scheduler) Register(sched Schedule) error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) (int, error)
	}{
		{"morning_nudge", sched.Morning, s.remind(domain.RitualMorning)},
		{"evening_nudge", sched.Evening, s.remind(domain.RitualEvening)},
		{"weekly_nudge", sched.Weekly, s.remind(domain.RitualWeekly)},
		{"monthly_nudge", sched.Monthly, s.remind(domain.RitualMonthly)},
		{"weekly_report", sched.Report, s.SendWeeklyReports},
		{"missed_evening_penalty", sched.Penalty, s.ApplyMissedEveningPenalties},
		{"session_sweep", sched.Sweep, s.sweep},
	}
	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		if j.name == "session_sweep" && s.sweeper == nil {
			continue
		}
		if j.name == "weekly_report" && s.reports == nil {
			continue
		}
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.runJob(j.name, j.run) }); err != nil {
			return fmt.Errorf("scheduling %s with %q: %w", j.name, j.spec, err)
		}
		s.logger.Info("job_scheduled", "job", j.name, "spec", j.spec)
	}
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) runJob(name string, run func(context.Context) (int, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	start := time.Now()
	n, err := run(ctx)
	if err != nil {
		s.logger.Error("job_failed", "job", name, "affected", n, "error", err.Error())
		return
	}
	s.logger.Info("job_finished", "job", name, "affected", n, "duration_ms", time.Since(start).Milliseconds())
}

func (s *Scheduler) today() time.Time {
	y, m, d := s.now().In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// nudgeText quotes the chat command that starts each ritual.
var nudgeText = map[domain.Ritual]string{
	domain.RitualMorning: "Good morning! Time for your morning kaizen. Start it with `/begin morning`.",
	domain.RitualEvening: "How did today go? Your evening reflection is waiting: `/begin evening`.",
	domain.RitualWeekly:  "It's weekly review time: `/begin weekly`.",
	domain.RitualMonthly: "A new month, a new principles assessment: `/begin monthly`.",
}

func (s *Scheduler) remind(r domain.Ritual) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) { return s.Remind(ctx, r) }
}

// Remind nudges every active account that has neither started nor finished
// ritual r today. The evening nudge also waits for today's morning kaizen,
// which the evening reflection requires. It returns how many nudges were
// delivered.
func (s *Scheduler) Remind(ctx context.Context, r domain.Ritual) (int, error) {
	text, ok := nudgeText[r]
	if !ok {
		return 0, fmt.Errorf("no reminder for ritual %s", r)
	}
	accounts, err := s.accounts.ListAccounts(ctx, true)
	if err != nil {
		return 0, err
	}
	today := s.today()
	sent := 0
	for _, a := range accounts {
		done, err := s.status.HasActiveOrCompletedRitual(ctx, a.ID, r, today)
		if err != nil {
			s.logger.Warn("ritual_status_failed", "account", a.ID, "ritual", string(r), "error", err.Error())
			continue
		}
		if done {
			continue
		}
		if r == domain.RitualEvening {
			morning, err := s.status.IsRitualCompleted(ctx, a.ID, domain.RitualMorning, today)
			if err != nil {
				s.logger.Warn("ritual_status_failed", "account", a.ID, "ritual", string(r), "error", err.Error())
				continue
			}
			if !morning {
				continue
			}
		}
		if err := s.notifier.Notify(ctx, a.ID, text); err != nil {
			s.logger.Warn("nudge_failed", "account", a.ID, "ritual", string(r), "error", err.Error())
			continue
		}
		if s.observer != nil {
			s.observer.NudgeSent(string(r))
		}
		sent++
	}
	return sent, nil
}

// SendWeeklyReports sends the seven-day summary to every active account
// that wrote at least one entry in that window.
func (s *Scheduler) SendWeeklyReports(ctx context.Context) (int, error) {
	accounts, err := s.accounts.ListAccounts(ctx, true)
	if err != nil {
		return 0, err
	}
	now := s.now().In(s.loc)
	sent := 0
	for _, a := range accounts {
		w, err := s.reports.Week(ctx, a.ID, now)
		if err != nil {
			s.logger.Warn("week_report_failed", "account", a.ID, "error", err.Error())
			continue
		}
		if w.Entries == 0 {
			continue
		}
		msg := "Weekly report\n\n" + bot.WeekReportText(w) + "\n\nGreat week! Keep it going."
		if err := s.notifier.Notify(ctx, a.ID, msg); err != nil {
			s.logger.Warn("week_report_failed", "account", a.ID, "error", err.Error())
			continue
		}
		sent++
	}
	return sent, nil
}

// ApplyMissedEveningPenalties charges accounts with penalties enabled that
// skipped yesterday's evening reflection. The dedup key makes reruns safe.
func (s *Scheduler) ApplyMissedEveningPenalties(ctx context.Context) (int, error) {
	accounts, err := s.accounts.ListAccounts(ctx, true)
	if err != nil {
		return 0, err
	}
	yesterday := s.today().AddDate(0, 0, -1)
	date := domain.DateKey(yesterday)
	charged := 0
	for _, a := range accounts {
		if !a.PenaltiesEnabled {
			continue
		}
		done, err := s.status.HasActiveOrCompletedRitual(ctx, a.ID, domain.RitualEvening, yesterday)
		if err != nil {
			s.logger.Warn("ritual_status_failed", "account", a.ID, "error", err.Error())
			continue
		}
		if done {
			continue
		}
		res, err := s.ledger.Earn(ctx, service.EarnRequest{
			AccountID:   a.ID,
			Trigger:     domain.TriggerMissedEveningPenalty,
			DedupKey:    domain.DedupKey(domain.TriggerMissedEveningPenalty, date),
			Description: "Missed evening reflection " + date,
			RefType:     "daily_entry",
			RefID:       date,
		})
		if err != nil {
			s.logger.Warn("penalty_failed", "account", a.ID, "error", err.Error())
			continue
		}
		if !res.Credited() {
			continue
		}
		charged++
		msg := fmt.Sprintf("You missed yesterday's evening reflection (%s): %d.", date, res.Amount)
		if err := s.notifier.Notify(ctx, a.ID, msg); err != nil {
			s.logger.Warn("penalty_notice_failed", "account", a.ID, "error", err.Error())
		}
	}
	return charged, nil
}

func (s *Scheduler) sweep(context.Context) (int, error) {
	return s.sweeper.Sweep(), nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Debug("cron_"+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("cron_"+msg, append(kv, "error", err)...)
}
