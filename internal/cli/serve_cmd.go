package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbr39/kaizen/internal/scheduler"
	"github.com/arbr39/kaizen/internal/transport/discord"
	"github.com/arbr39/kaizen/internal/transport/httpapi"
)

const sweepSpec = "@every 5m"

func newServeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot, HTTP API and reminder scheduler",
		Long: `Run the long-lived bot. Discord starts when DISCORD_BOT_TOKEN is set,
the HTTP API when KAIZEN_HTTP_ADDR is set. Reminders and the missed-evening
penalty and the Sunday report run on the KAIZEN_*_CRON schedules.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, e)
		},
	}
}

var errNothingToServe = errors.New("nothing to serve: set DISCORD_BOT_TOKEN or KAIZEN_HTTP_ADDR")

func serve(ctx context.Context, e *env) error {
	a := e.app
	cfg := a.Config
	if cfg.DiscordToken == "" && cfg.HTTPAddr == "" {
		return errNothingToServe
	}

	var notifier scheduler.Notifier = logNotifier{a.Logger}
	if cfg.DiscordToken != "" {
		b, err := discord.New(cfg.DiscordToken, a.Dispatcher, a.Logger)
		if err != nil {
			return err
		}
		if err := b.Open(); err != nil {
			return err
		}
		defer b.Close()
		notifier = b
	}

	sched := scheduler.New(a.Ledger, a.Status, a.Ledger, notifier, cfg.Location,
		scheduler.WithSweeper(a.Sweeper()),
		scheduler.WithReports(a.Reports),
		scheduler.WithNudgeObserver(a.Metrics),
		scheduler.WithClock(a.Now),
		scheduler.WithLogger(a.Logger),
	)
	err := sched.Register(scheduler.Schedule{
		Morning: cfg.Schedule.Morning,
		Evening: cfg.Schedule.Evening,
		Weekly:  cfg.Schedule.Weekly,
		Monthly: cfg.Schedule.Monthly,
		Report:  cfg.Schedule.Report,
		Penalty: cfg.Schedule.Penalty,
		Sweep:   sweepSpec,
	})
	if err != nil {
		return err
	}
	sched.Start()
	a.Logger.Info("scheduler_started", "jobs", sched.Entries(), "timezone", cfg.Location.String())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	if cfg.HTTPAddr != "" {
		srv := httpapi.NewServer(a.Dispatcher, a.Ledger,
			httpapi.WithMetrics(a.MetricsHandler()),
			httpapi.WithClock(a.Now),
			httpapi.WithLocation(cfg.Location),
			httpapi.WithLogger(a.Logger),
		)
		return srv.ListenAndServe(ctx, cfg.HTTPAddr)
	}

	<-ctx.Done()
	a.Logger.Info("shutting_down")
	return nil
}

// logNotifier stands in for Discord when only the HTTP API runs; HTTP
// clients poll, so reminders are only logged.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(_ context.Context, accountID, message string) error {
	n.logger.Info("reminder", "account", accountID, "message", message)
	return nil
}
