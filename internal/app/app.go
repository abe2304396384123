// Package app assembles the service from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
	"github.com/LoppVicious/QuantDesk-Web/internal/config"
	"github.com/LoppVicious/QuantDesk-Web/internal/gex"
	"github.com/LoppVicious/QuantDesk-Web/internal/metrics"
	"github.com/LoppVicious/QuantDesk-Web/internal/notify"
	"github.com/LoppVicious/QuantDesk-Web/internal/provider"
	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
	"github.com/LoppVicious/QuantDesk-Web/internal/server"
	"github.com/LoppVicious/QuantDesk-Web/internal/universe"
)

func sec(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// App holds the wired components of one process.
type App struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Provider provider.Provider
	Universe *universe.Loader
	Analyzer *analysis.Analyzer
	Engine   *analysis.Engine
	Store    *scan.CacheStore
	Scanner  *scan.Manager
	logger   *zap.Logger
}

// New wires every component. Close releases the task store.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	p := NewProvider(cfg, m, logger)

	u := universe.NewLoader(universe.Config{
		Source:          cfg.Universe.URL,
		FallbackEnabled: cfg.Universe.FallbackEnabled,
		Timeout:         sec(cfg.Universe.TimeoutSec),
	}, logger.Named("universe"))

	analyzer := analysis.NewAnalyzer(p, cfg.Engine.ATMBand, logger.Named("analyzer"))
	engine := analysis.NewEngine(p, analysis.EngineConfig{
		Window:  gex.WindowPolicy{Band: cfg.Engine.StrikeBand, MaxStrikes: cfg.Engine.MaxStrikes},
		Flip:    gex.FlipGrid{Band: cfg.Engine.FlipBand, Points: cfg.Engine.FlipPoints},
		ATMBand: cfg.Engine.ATMBand,
	}, logger.Named("engine"))

	store, err := scan.NewCacheStore(ctx, time.Duration(cfg.Scan.RetentionMin)*time.Minute, logger.Named("tasks"))
	if err != nil {
		return nil, fmt.Errorf("creating task store: %w", err)
	}

	notifier := notify.New(&notify.Config{
		Enabled:  cfg.Notify.Enabled,
		Server:   cfg.Notify.Server,
		Topic:    cfg.Notify.Topic,
		Priority: cfg.Notify.Priority,
		Tags:     cfg.Notify.Tags,
		Token:    cfg.Notify.Token,
	}, logger.Named("notify"))

	scanner := scan.NewManager(analyzer, u, store, notifier, m, scan.Config{
		Workers:           cfg.Scan.Workers,
		BatchSize:         cfg.Scan.BatchSize,
		TickerTimeout:     sec(cfg.Scan.TickerTimeoutSec),
		MaxTickers:        cfg.Scan.MaxTickers,
		DefaultNumTickers: cfg.Scan.DefaultNumTickers,
		DefaultLookback:   cfg.Scan.DefaultLookback,
		DefaultMaxDTE:     cfg.Engine.DefaultMaxDTE,
		RiskFreeRate:      cfg.Engine.RiskFreeRate,
	}, logger.Named("scan"))

	return &App{
		Config:   cfg,
		Registry: reg,
		Metrics:  m,
		Provider: p,
		Universe: u,
		Analyzer: analyzer,
		Engine:   engine,
		Store:    store,
		Scanner:  scanner,
		logger:   logger,
	}, nil
}

// NewProvider builds the market data chain: Yahoo first, synthetic data
// behind it when fallback is enabled.
func NewProvider(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) provider.Provider {
	yahoo := provider.NewYahooClient(provider.ClientConfig{
		BaseURL:        cfg.Provider.BaseURL,
		RatePerSecond:  cfg.Provider.RatePerSecond,
		Timeout:        sec(cfg.Provider.TimeoutSec),
		RetryCount:     cfg.Provider.RetryCount,
		RetryDelay:     sec(cfg.Provider.RetryDelay),
		MaxExpirations: cfg.Provider.MaxExpirations,
		Breaker: provider.BreakerConfig{
			MaxRequests: cfg.Provider.Breaker.MaxRequests,
			Interval:    sec(cfg.Provider.Breaker.IntervalSec),
			Timeout:     sec(cfg.Provider.Breaker.TimeoutSec),
		},
	}, m, logger.Named("yahoo"))

	if !cfg.Provider.FallbackEnabled {
		return yahoo
	}
	return provider.NewFallback(yahoo, provider.NewSynthetic(), m, logger.Named("provider"))
}

// Handler returns the HTTP router.
func (a *App) Handler() (http.Handler, error) {
	srv := server.NewServer(a.Engine, a.Scanner, server.Config{
		RiskFreeRate:  a.Config.Engine.RiskFreeRate,
		DefaultMaxDTE: a.Config.Engine.DefaultMaxDTE,
	}, a.logger.Named("http"))

	metricsHandler := promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	return server.NewRouter(srv, metricsHandler, a.logger)
}

// Close interrupts scans still running and releases the task store.
func (a *App) Close() error {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Scanner.Shutdown(ctx)
	return a.Store.Close()
}
