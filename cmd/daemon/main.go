package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/app"
	"github.com/LoppVicious/QuantDesk-Web/internal/config"
	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Getenv("QUANTDESK_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger, err := app.NewLogger(false, &cfg.Logging, "daemon")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	sched := cfg.Schedule
	logger.Info("daemon configuration loaded",
		zap.Int("scheduleHour", sched.Hour),
		zap.Int("scheduleMinute", sched.Minute),
		zap.String("timezone", sched.Timezone),
		zap.Bool("runOnStartup", sched.RunOnStartup),
		zap.String("sector", sched.Sector),
		zap.Bool("notify", cfg.Notify.Enabled),
	)

	// Setup signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire service", zap.Error(err))
		return 1
	}
	defer a.Close()

	scheduler := NewScheduler(sched.Hour, sched.Minute, sched.Timezone)
	if !sched.RunOnStartup {
		scheduler.SkipToday()
	}

	logger.Info("daemon started",
		zap.String("schedule", fmt.Sprintf("%02d:%02d %s", sched.Hour, sched.Minute, sched.Timezone)),
	)

	// Main loop - check every minute
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		if scheduler.Due() {
			runScan(ctx, a, scheduler, cfg.Schedule, logger)
		}

		select {
		case <-ctx.Done():
			logger.Info("received shutdown signal")
			return 0
		case <-ticker.C:
		}
	}
}

// runScan executes the daily scan in the foreground so a shutdown signal
// interrupts it. The notifier wired into the scan manager reports the
// outcome.
func runScan(ctx context.Context, a *app.App, scheduler *Scheduler, sched config.ScheduleConfig, logger *zap.Logger) {
	today := scheduler.TodayDate()
	scheduler.MarkRun(today)

	logger.Info("starting scheduled scan", zap.String("date", today))

	id, sum, err := a.Scanner.RunForeground(ctx, scan.Request{Sector: sched.Sector, NumTickers: sched.NumTickers})
	if err != nil {
		logger.Error("scheduled scan failed", zap.Error(err), zap.String("date", today))
		return
	}
	logger.Info("scheduled scan finished",
		zap.String("date", today),
		zap.String("task_id", id),
		zap.Int("ok", sum.OK),
		zap.Int("total", sum.Total),
		zap.Duration("duration", sum.Duration),
	)
}
