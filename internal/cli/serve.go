package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pawpal/internal/bot"
	"pawpal/internal/service"
)

const (
	reportTimeout   = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot with scheduled reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reminders := service.NewReminderService(a.household)
	telegramBot, err := bot.New(a.cfg, a.household, reminders, a.metrics, a.log)
	if err != nil {
		return err
	}

	sendReports := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := telegramBot.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error().Err(err).Msg("daily report")
		}
	}

	jobs := service.NewJobScheduler(time.Local, a.log)
	dailyID, err := jobs.ScheduleDaily(a.cfg.DailyPlanTime, sendReports)
	if err != nil {
		return err
	}
	if a.cfg.ReportInterval > 0 {
		if _, err := jobs.ScheduleInterval(a.cfg.ReportInterval, sendReports); err != nil {
			return err
		}
	}
	jobs.Start()
	defer jobs.Stop()
	a.log.Info().Time("next", jobs.Next(dailyID)).Msg("daily plan scheduled")

	if a.cfg.MetricsAddr != "" {
		srv := a.startMetricsServer()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	a.log.Info().Str("owner", a.household.OwnerName()).Msg("pawpal bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info().Msg("shutdown complete")
	return nil
}

func (a *app) startMetricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("addr", srv.Addr).Msg("metrics server")
		}
	}()
	a.log.Info().Str("addr", srv.Addr).Msg("metrics listening")
	return srv
}
