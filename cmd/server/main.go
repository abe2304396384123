package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/app"
	"github.com/LoppVicious/QuantDesk-Web/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load config
	cfg, err := config.Load(os.Getenv("QUANTDESK_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Setup logger
	logger, err := app.NewLogger(false, &cfg.Logging, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("provider", cfg.Provider.BaseURL),
		zap.Bool("fallback", cfg.Provider.FallbackEnabled),
		zap.Int("workers", cfg.Scan.Workers),
		zap.Float64("riskFreeRate", cfg.Engine.RiskFreeRate),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to wire service", zap.Error(err))
		return 1
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}
