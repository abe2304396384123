package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/market"
	"github.com/LoppVicious/QuantDesk-Web/internal/metrics"
)

// Fallback serves from primary and switches to secondary whenever primary
// fails or returns nothing usable. Cancellation is never masked.
type Fallback struct {
	primary   Provider
	secondary Provider
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewFallback(primary, secondary Provider, m *metrics.Metrics, logger *zap.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		metrics:   m,
		logger:    logger,
	}
}

func (f *Fallback) degrade(ctx context.Context, endpoint, ticker string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	f.logger.Warn("using synthetic market data",
		zap.String("endpoint", endpoint),
		zap.String("ticker", ticker),
		zap.Error(err),
	)
	f.metrics.ProviderRequest(endpoint, "fallback")
	return true
}

func (f *Fallback) History(ctx context.Context, ticker string, days int) ([]market.Bar, error) {
	bars, err := f.primary.History(ctx, ticker, days)
	if (err != nil || len(bars) == 0) && f.degrade(ctx, "chart", ticker, err) {
		return f.secondary.History(ctx, ticker, days)
	}
	return bars, err
}

func (f *Fallback) SpotPrice(ctx context.Context, ticker string) (float64, error) {
	spot, err := f.primary.SpotPrice(ctx, ticker)
	if (err != nil || spot <= 0) && f.degrade(ctx, "spot", ticker, err) {
		return f.secondary.SpotPrice(ctx, ticker)
	}
	return spot, err
}

func (f *Fallback) Options(ctx context.Context, ticker string, maxDTE int) (*market.Chain, error) {
	chain, err := f.primary.Options(ctx, ticker, maxDTE)
	if (err != nil || chain == nil || chain.Empty()) && f.degrade(ctx, "options", ticker, err) {
		return f.secondary.Options(ctx, ticker, maxDTE)
	}
	return chain, err
}
