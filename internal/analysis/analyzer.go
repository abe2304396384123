// Package analysis turns raw market data into per-ticker screening results
// and single-asset exposure profiles.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/gex"
	"github.com/LoppVicious/QuantDesk-Web/internal/greeks"
	"github.com/LoppVicious/QuantDesk-Web/internal/market"
	"github.com/LoppVicious/QuantDesk-Web/internal/provider"
)

const (
	// MinHistoryBars is the shortest history a ticker can be screened on.
	MinHistoryBars = 50
	// NearWallPct is the distance from a wall, as a fraction of spot, that
	// counts as near.
	NearWallPct = 0.02

	gammaPowerDays = 30.0
	historyPadding = 20
	minHistoryDays = 60
)

// Params are the per-scan analysis inputs.
type Params struct {
	Rate     float64
	Lookback int
	MaxDTE   int
}

// Result is the flat screening record for one ticker. Volatilities and
// distances are percentages.
type Result struct {
	Ticker          string  `json:"ticker"`
	Sector          string  `json:"sector"`
	Price           float64 `json:"price"`
	SMA20           float64 `json:"sma20"`
	SMA50           float64 `json:"sma50"`
	DistSMA20Pct    float64 `json:"dist_sma20_pct"`
	DistSMA50Pct    float64 `json:"dist_sma50_pct"`
	RV              float64 `json:"rv"`
	IV              float64 `json:"iv"`
	VRP             float64 `json:"vrp"`
	Liquidity       float64 `json:"liquidity"`
	CallWall        float64 `json:"call_wall"`
	PutWall         float64 `json:"put_wall"`
	DistCallWallPct float64 `json:"dist_call_wall_pct"`
	DistPutWallPct  float64 `json:"dist_put_wall_pct"`
	GammaPower      float64 `json:"gamma_power"`
	NearWall        bool    `json:"near_wall"`
	Synthetic       bool    `json:"synthetic"`
}

// Analyzer screens a single ticker at a time and is safe for concurrent use.
type Analyzer struct {
	provider provider.Provider
	atmBand  float64
	logger   *zap.Logger
}

func NewAnalyzer(p provider.Provider, atmBand float64, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		provider: p,
		atmBand:  atmBand,
		logger:   logger,
	}
}

// Analyze fetches and evaluates one constituent. It never panics and never
// returns an error: every failure is folded into the Outcome.
func (a *Analyzer) Analyze(ctx context.Context, c market.Constituent, p Params) Outcome {
	var out Outcome
	var pc panics.Catcher
	pc.Try(func() { out = a.analyze(ctx, c, p) })
	if r := pc.Recovered(); r != nil {
		out = fault(c.Symbol, r.AsError())
	}

	switch out.Kind {
	case KindUnavailable:
		a.logger.Debug("ticker unavailable", zap.String("ticker", c.Symbol), zap.String("reason", out.Reason))
	case KindFault:
		a.logger.Warn("ticker analysis failed", zap.String("ticker", c.Symbol), zap.String("reason", out.Reason))
	}
	return out
}

func (a *Analyzer) analyze(ctx context.Context, c market.Constituent, p Params) Outcome {
	chain, err := a.provider.Options(ctx, c.Symbol, p.MaxDTE)
	if err != nil {
		return fetchFailure(ctx, c.Symbol, "options", err)
	}
	if chain.Empty() || chain.Spot <= 0 {
		return unavailable(c.Symbol, "no option chain")
	}

	bars, err := a.provider.History(ctx, c.Symbol, max(p.Lookback, minHistoryDays)+historyPadding)
	if err != nil {
		return fetchFailure(ctx, c.Symbol, "history", err)
	}

	out := Evaluate(market.Snapshot{
		Ticker:  c.Symbol,
		Spot:    chain.Spot,
		Options: chain.Records(),
		History: bars,
	}, c.Sector, p, a.atmBand)
	if out.Result != nil {
		out.Result.Synthetic = chain.Synthetic
	}
	return out
}

// fetchFailure maps a provider error. Cancellation and deadlines are faults
// so stuck units stay visible; anything else is missing data.
func fetchFailure(ctx context.Context, ticker, what string, err error) Outcome {
	if ctx.Err() != nil {
		return fault(ticker, fmt.Errorf("fetching %s: %w", what, ctx.Err()))
	}
	if errors.Is(err, provider.ErrNotFound) {
		return unavailable(ticker, "no "+what+" data")
	}
	return unavailable(ticker, fmt.Sprintf("fetching %s: %v", what, err))
}

// Evaluate computes the screening result for a snapshot. It is pure and
// performs no I/O.
func Evaluate(snap market.Snapshot, sector string, p Params, atmBand float64) Outcome {
	if !snap.HasSpot() {
		return unavailable(snap.Ticker, "no spot price")
	}
	if len(snap.History) < MinHistoryBars {
		return unavailable(snap.Ticker, fmt.Sprintf("insufficient history: %d bars", len(snap.History)))
	}

	calls := make([]market.OptionRecord, 0, len(snap.Options))
	for _, r := range snap.Options {
		if r.Type == market.Call {
			calls = append(calls, r)
		}
	}
	if len(calls) == 0 {
		return unavailable(snap.Ticker, "no calls listed")
	}

	spot := snap.Spot
	closes := market.Closes(snap.History)
	sma20 := SMA(closes, 20)
	sma50 := SMA(closes, 50)
	rv := RealizedVol(closes, p.Lookback)

	atm := nearTheMoney(calls, spot, atmBand)
	iv := meanIV(atm)
	if len(atm) == 0 {
		iv = meanIV(calls)
	}

	callWall, putWall := gex.Walls(snap.Options)
	gammaPower := greeks.Gamma(spot, callWall, gammaPowerDays/gex.DaysPerYear, p.Rate, iv) *
		gex.MaxCallOpenInterest(snap.Options) * spot * gex.ContractMultiplier

	distCall := (callWall - spot) / spot
	distPut := (putWall - spot) / spot

	return ok(&Result{
		Ticker:          snap.Ticker,
		Sector:          sector,
		Price:           spot,
		SMA20:           sma20,
		SMA50:           sma50,
		DistSMA20Pct:    (spot - sma20) / sma20 * 100,
		DistSMA50Pct:    (spot - sma50) / sma50 * 100,
		RV:              rv * 100,
		IV:              iv * 100,
		VRP:             (iv - rv) * 100,
		Liquidity:       spreadPct(atm),
		CallWall:        callWall,
		PutWall:         putWall,
		DistCallWallPct: distCall * 100,
		DistPutWallPct:  distPut * 100,
		GammaPower:      gammaPower,
		NearWall:        math.Abs(distCall) < NearWallPct || math.Abs(distPut) < NearWallPct,
	})
}

// nearTheMoney keeps records strictly inside spot*(1±band).
func nearTheMoney(records []market.OptionRecord, spot, band float64) []market.OptionRecord {
	lo, hi := spot*(1-band), spot*(1+band)
	var out []market.OptionRecord
	for _, r := range records {
		if r.Strike > lo && r.Strike < hi {
			out = append(out, r)
		}
	}
	return out
}

func meanIV(records []market.OptionRecord) float64 {
	ivs := make([]float64, len(records))
	for i, r := range records {
		ivs[i] = r.ImpliedVolatility
	}
	return mean(ivs)
}

// spreadPct is the mean bid/ask spread relative to the last price, in
// percent. Contracts that never traded are skipped.
func spreadPct(records []market.OptionRecord) float64 {
	var spreads []float64
	for _, r := range records {
		if r.LastPrice > 0 {
			spreads = append(spreads, (r.Ask-r.Bid)/r.LastPrice)
		}
	}
	return mean(spreads) * 100
}
