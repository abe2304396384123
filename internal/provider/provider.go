// Package provider fetches spot prices, daily history and option chains
// from an external market data source, with a synthetic fallback.
package provider

import (
	"context"
	"errors"

	"github.com/LoppVicious/QuantDesk-Web/internal/market"
)

var (
	ErrNotFound    = errors.New("no market data for ticker")
	ErrRateLimited = errors.New("rate limited by market data source")
	ErrUnavailable = errors.New("market data source unavailable")
)

// Provider is the market data contract consumed by the analytics engine.
//
// History returns daily bars covering roughly the last days calendar days,
// oldest first. SpotPrice returns 0 when no price is known. Options returns
// the contracts expiring within maxDTE days (the nearest expiry when none
// do); maxDTE <= 0 means no limit.
type Provider interface {
	History(ctx context.Context, ticker string, days int) ([]market.Bar, error)
	SpotPrice(ctx context.Context, ticker string) (float64, error)
	Options(ctx context.Context, ticker string, maxDTE int) (*market.Chain, error)
}
