package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"TWStockHarvester/internal/notifier"
	"TWStockHarvester/internal/scheduler"
)

var runOnStart bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run latest-mode harvests on the configured cron schedules",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().BoolVar(&runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "Run both tasks once at startup")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, "")
	if err != nil {
		return err
	}
	defer a.Close()

	var n scheduler.Notifier
	if cfg.Telegram.Enabled() {
		n = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
	}

	sched := scheduler.NewScheduler(ctx, a.harvester, n, logger)
	if err := sched.RegisterAll(cfg.Schedule.PricesCron, cfg.Schedule.StatementsCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if runOnStart {
		logger.Info().Msg("Run on start enabled")
		sched.RunOnStart()
	}

	logger.Info().Str("prices", cfg.Schedule.PricesCron).Str("statements", cfg.Schedule.StatementsCron).Msg("Harvester scheduler running, press Ctrl+C to stop")
	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")
	return nil
}
