package analysis

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/gex"
	"github.com/LoppVicious/QuantDesk-Web/internal/market"
	"github.com/LoppVicious/QuantDesk-Web/internal/provider"
)

// profileHistoryDays is roughly six months of daily bars.
const profileHistoryDays = 183

// EngineConfig holds the numeric policy for single-asset profiles.
type EngineConfig struct {
	Window  gex.WindowPolicy
	Flip    gex.FlipGrid
	ATMBand float64
}

// ProfileParams are the per-request inputs for a single-asset profile.
type ProfileParams struct {
	Rate   float64
	MaxDTE int
}

// HistoryPoint is one bar of the price chart. Moving averages are nil until
// enough bars exist.
type HistoryPoint struct {
	Date  string   `json:"date"`
	Close float64  `json:"close"`
	SMA20 *float64 `json:"sma20"`
	SMA50 *float64 `json:"sma50"`
}

// AssetProfile is the full exposure view for one ticker.
type AssetProfile struct {
	Ticker      string             `json:"ticker"`
	Price       float64            `json:"price"`
	CallWall    float64            `json:"call_wall"`
	PutWall     float64            `json:"put_wall"`
	GammaFlip   float64            `json:"gamma_flip"`
	FlipExact   bool               `json:"gamma_flip_exact"`
	Profile     []gex.StrikeBucket `json:"gex_profile"`
	Downsampled bool               `json:"downsampled"`
	ATMIV       float64            `json:"iv_atm"`
	History     []HistoryPoint     `json:"history"`
	Synthetic   bool               `json:"synthetic"`
}

// Engine computes single-asset profiles on demand.
type Engine struct {
	provider provider.Provider
	cfg      EngineConfig
	logger   *zap.Logger
}

func NewEngine(p provider.Provider, cfg EngineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		provider: p,
		cfg:      cfg,
		logger:   logger,
	}
}

// Profile returns the exposure profile of ticker. It returns ErrNotFound when
// there is no price or no live option position; no partial profile is ever
// returned.
func (e *Engine) Profile(ctx context.Context, ticker string, p ProfileParams) (*AssetProfile, error) {
	spot, err := e.provider.SpotPrice(ctx, ticker)
	if err != nil && !errors.Is(err, provider.ErrNotFound) {
		return nil, fmt.Errorf("fetching spot for %s: %w", ticker, err)
	}
	if !(spot > 0) {
		return nil, fmt.Errorf("%s: no price: %w", ticker, ErrNotFound)
	}

	bars, err := e.provider.History(ctx, ticker, profileHistoryDays)
	if err != nil && !errors.Is(err, provider.ErrNotFound) {
		return nil, fmt.Errorf("fetching history for %s: %w", ticker, err)
	}

	chain, err := e.provider.Options(ctx, ticker, p.MaxDTE)
	if errors.Is(err, provider.ErrNotFound) || (err == nil && chain.Empty()) {
		return nil, fmt.Errorf("%s: no option chain: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching options for %s: %w", ticker, err)
	}

	prof, err := gex.Aggregate(chain.Records(), spot, p.Rate, e.cfg.Window, e.cfg.ATMBand)
	switch {
	case errors.Is(err, gex.ErrNoSpot), errors.Is(err, gex.ErrNoPositions):
		return nil, fmt.Errorf("%s: %v: %w", ticker, err, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("aggregating %s: %w", ticker, err)
	}
	flip := prof.Flip(p.Rate, e.cfg.Flip)

	e.logger.Debug("computed profile",
		zap.String("ticker", ticker),
		zap.Float64("spot", spot),
		zap.Int("positions", len(prof.Positions)),
		zap.Float64("gamma_flip", flip.Level),
		zap.Bool("exact", flip.Exact),
	)

	return &AssetProfile{
		Ticker:      ticker,
		Price:       spot,
		CallWall:    prof.CallWall,
		PutWall:     prof.PutWall,
		GammaFlip:   flip.Level,
		FlipExact:   flip.Exact,
		Profile:     prof.Buckets,
		Downsampled: prof.Downsampled,
		ATMIV:       prof.ATMIV,
		History:     historyPoints(bars),
		Synthetic:   chain.Synthetic,
	}, nil
}

func historyPoints(bars []market.Bar) []HistoryPoint {
	closes := market.Closes(bars)
	sma20 := RollingSMA(closes, 20)
	sma50 := RollingSMA(closes, 50)

	out := make([]HistoryPoint, len(bars))
	for i, b := range bars {
		out[i] = HistoryPoint{
			Date:  b.Date.Format("2006-01-02"),
			Close: b.Close,
			SMA20: sma20[i],
			SMA50: sma50[i],
		}
	}
	return out
}
