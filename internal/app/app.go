// Package app is the composition root: it turns a Config into wired
// services, rituals, the dialog engine and the dispatcher.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbr39/kaizen/internal/bot"
	"github.com/arbr39/kaizen/internal/calendar"
	"github.com/arbr39/kaizen/internal/config"
	"github.com/arbr39/kaizen/internal/db"
	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/metrics"
	"github.com/arbr39/kaizen/internal/repository"
	"github.com/arbr39/kaizen/internal/ritual"
	"github.com/arbr39/kaizen/internal/scheduler"
	"github.com/arbr39/kaizen/internal/service"
)

const redisKeyPrefix = "kaizen:"

// App holds everything the commands need.
type App struct {
	Config config.Config
	Logger *slog.Logger
	Now    func() time.Time

	Ledger     service.LedgerService
	Items      service.ItemService
	Inbox      service.InboxService
	Status     service.RitualStatusService
	Reports    service.ReportService
	Rituals    *ritual.Set
	Engine     *dialog.Engine
	Dispatcher *bot.Dispatcher
	Metrics    *metrics.Metrics

	registry *prometheus.Registry
	sweeper  scheduler.Sweeper
	closers  []func() error
}

type Option func(*buildOptions)

type buildOptions struct {
	db       *sql.DB
	now      func() time.Time
	calendar calendar.Client
}

// WithDB uses an already opened database instead of Config.DatabasePath.
// The caller keeps ownership of it.
func WithDB(database *sql.DB) Option {
	return func(o *buildOptions) { o.db = database }
}

func WithClock(now func() time.Time) Option {
	return func(o *buildOptions) { o.now = now }
}

// WithCalendar overrides the calendar client chosen from Config.
func WithCalendar(c calendar.Client) Option {
	return func(o *buildOptions) { o.calendar = c }
}

// Build wires the application. Close releases what it opened.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := buildOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	a := &App{Config: cfg, Logger: logger, Now: o.now}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	database := o.db
	if database == nil {
		var err error
		database, err = db.OpenDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.closers = append(a.closers, database.Close)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.registry)

	accounts := repository.NewSQLiteAccountRepo(database)
	txs := repository.NewSQLiteTransactionRepo(database)
	entries := repository.NewSQLiteDailyEntryRepo(database)
	inboxRepo := repository.NewSQLiteInboxRepo(database)
	weekly := repository.NewSQLiteWeeklyReviewRepo(database)
	assessments := repository.NewSQLiteAssessmentRepo(database)
	uow := db.NewTxRunner(database)

	a.Ledger = service.NewLedgerService(accounts, txs, entries, uow, cfg.Rates,
		service.NewSlogUseCaseObserver(logger), a.Metrics)
	a.Items = service.NewItemService(repository.NewSQLiteItemRepo(database))
	a.Inbox = service.NewInboxService(inboxRepo, a.Ledger)
	a.Reports = service.NewReportService(entries)

	cal := o.calendar
	if cal == nil {
		var err error
		cal, err = newCalendar(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	set, err := ritual.New(ritual.Deps{
		Ledger:      a.Ledger,
		Entries:     entries,
		Inbox:       a.Inbox,
		Weekly:      weekly,
		Assessments: assessments,
		Calendar:    cal,
		Location:    cfg.Location,
		Now:         o.now,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building rituals: %w", err)
	}
	a.Rituals = set
	defs, err := set.Registry()
	if err != nil {
		return nil, fmt.Errorf("registering rituals: %w", err)
	}

	store, err := a.newSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Engine = dialog.NewEngine(defs, store,
		dialog.WithClock(o.now),
		dialog.WithLogger(logger),
		dialog.WithObserver(a.Metrics),
	)
	a.Status = service.NewRitualStatusService(a.Engine, entries, inboxRepo, weekly, assessments)
	a.Dispatcher = bot.NewDispatcher(bot.Deps{
		Dialogs:  a.Engine,
		Ledger:   a.Ledger,
		Items:    a.Items,
		Inbox:    a.Inbox,
		Reports:  a.Reports,
		Location: cfg.Location,
		Now:      o.now,
		Logger:   logger,
	})

	ok = true
	return a, nil
}

func newCalendar(ctx context.Context, cfg config.Config, logger *slog.Logger) (calendar.Client, error) {
	if cfg.CalendarCredentials == "" {
		return calendar.Noop{}, nil
	}
	g, err := calendar.NewGoogle(ctx, cfg.CalendarID, calendar.CredentialOptions(cfg.CalendarCredentials)...)
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	logger.Info("calendar_enabled", "calendar_id", cfg.CalendarID)
	return g, nil
}

// newSessionStore picks Redis when configured so several processes can
// share sessions, otherwise an in-process store swept by the scheduler.
func (a *App) newSessionStore(ctx context.Context) (dialog.Store, error) {
	if a.Config.RedisAddr == "" {
		mem := dialog.NewMemoryStore(a.Config.SessionIdle).WithClock(a.Now)
		a.sweeper = mem
		return mem, nil
	}
	rdb, err := dialog.DialRedis(ctx, a.Config.RedisAddr, a.Config.RedisPassword, a.Config.RedisDB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb.Close)
	a.Logger.Info("session_store_redis", "addr", a.Config.RedisAddr)
	return dialog.NewRedisStore(rdb, redisKeyPrefix, a.Config.SessionIdle), nil
}

// Sweeper returns the in-process session store, or nil when sessions live
// in Redis and expire by TTL.
func (a *App) Sweeper() scheduler.Sweeper {
	return a.sweeper
}

// MetricsHandler serves the app's Prometheus registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry})
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
