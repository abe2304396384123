// Package gex aggregates open-interest weighted gamma exposure by strike and
// locates the gamma flip level.
package gex

import (
	"errors"
	"math"
	"sort"

	"github.com/LoppVicious/QuantDesk-Web/internal/greeks"
	"github.com/LoppVicious/QuantDesk-Web/internal/market"
)

// ContractMultiplier is the number of shares per listed equity option.
const ContractMultiplier = 100.0

// DaysPerYear is the fixed day-count used to convert DTE to years.
const DaysPerYear = 365.0

var (
	ErrNoSpot      = errors.New("spot price unavailable")
	ErrNoPositions = errors.New("no live option positions")
)

// Position is a live option row prepared for exposure math.
type Position struct {
	Strike       float64
	Expiry       float64 // years
	Vol          float64
	OpenInterest float64
	Sign         float64 // +1 call, -1 put
}

// ExposureRow is the signed dollar gamma of one position at a given spot.
type ExposureRow struct {
	Strike              float64 `json:"strike"`
	SignedGammaExposure float64 `json:"signed_gamma_exposure"`
	OpenInterest        float64 `json:"open_interest"`
}

// StrikeBucket aggregates every row that shares a strike.
type StrikeBucket struct {
	Strike            float64 `json:"strike"`
	NetGammaExposure  float64 `json:"net_gex"`
	TotalOpenInterest float64 `json:"total_oi"`
}

// NewPositions drops rows that are not a live market (non-positive open
// interest, volatility or strike) and converts the rest. Input is not
// modified.
func NewPositions(records []market.OptionRecord) []Position {
	out := make([]Position, 0, len(records))
	for _, r := range records {
		if !(r.OpenInterest > 0) || !(r.ImpliedVolatility > 0) || !(r.Strike > 0) {
			continue
		}
		sign := 1.0
		if r.Type == market.Put {
			sign = -1.0
		}
		out = append(out, Position{
			Strike:       r.Strike,
			Expiry:       r.DaysToExpiry / DaysPerYear,
			Vol:          r.ImpliedVolatility,
			OpenInterest: r.OpenInterest,
			Sign:         sign,
		})
	}
	return out
}

// columns splits positions into the parallel slices the evaluator expects.
func columns(positions []Position) (strikes, expiries, vols []float64) {
	strikes = make([]float64, len(positions))
	expiries = make([]float64, len(positions))
	vols = make([]float64, len(positions))
	for i, p := range positions {
		strikes[i] = p.Strike
		expiries[i] = p.Expiry
		vols[i] = p.Vol
	}
	return strikes, expiries, vols
}

// ExposureRows computes gamma x OI x spot x multiplier x sign per position.
func ExposureRows(positions []Position, spot, rate float64) []ExposureRow {
	if len(positions) == 0 {
		return nil
	}
	strikes, expiries, vols := columns(positions)
	gammas := greeks.GammaVec(greeks.Scalar(spot), strikes, expiries, greeks.Scalar(rate), vols)

	rows := make([]ExposureRow, len(positions))
	for i, p := range positions {
		g := 0.0
		if len(gammas) == len(positions) {
			g = gammas[i]
		}
		rows[i] = ExposureRow{
			Strike:              p.Strike,
			SignedGammaExposure: g * p.OpenInterest * spot * ContractMultiplier * p.Sign,
			OpenInterest:        p.OpenInterest,
		}
	}
	return rows
}

// Buckets groups rows by strike, ascending. Every bucket is a fresh sum
// over its rows in input order.
func Buckets(rows []ExposureRow) []StrikeBucket {
	index := make(map[float64]int)
	var out []StrikeBucket
	for _, r := range rows {
		i, ok := index[r.Strike]
		if !ok {
			i = len(out)
			index[r.Strike] = i
			out = append(out, StrikeBucket{Strike: r.Strike})
		}
		out[i].NetGammaExposure += r.SignedGammaExposure
		out[i].TotalOpenInterest += r.OpenInterest
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Strike < out[b].Strike })
	return out
}

// Walls returns the strikes with the largest summed open interest among
// calls and among puts. Ties resolve to the lowest strike; a side with no
// open interest yields 0.
func Walls(records []market.OptionRecord) (callWall, putWall float64) {
	callWall, _ = wall(records, market.Call)
	putWall, _ = wall(records, market.Put)
	return callWall, putWall
}

// wall returns the wall strike for one side and its summed open interest.
func wall(records []market.OptionRecord, side market.OptionType) (strike, oi float64) {
	sums := make(map[float64]float64)
	for _, r := range records {
		if r.Type != side || !(r.OpenInterest > 0) {
			continue
		}
		sums[r.Strike] += r.OpenInterest
	}
	strikes := make([]float64, 0, len(sums))
	for k := range sums {
		strikes = append(strikes, k)
	}
	sort.Float64s(strikes)
	for _, k := range strikes {
		if sums[k] > oi {
			strike, oi = k, sums[k]
		}
	}
	return strike, oi
}

// MaxCallOpenInterest is the summed open interest at the call wall.
func MaxCallOpenInterest(records []market.OptionRecord) float64 {
	_, oi := wall(records, market.Call)
	return oi
}

// ATMImpliedVol averages the volatility of positions whose strike lies
// within band of spot, falling back to every position when none do.
func ATMImpliedVol(positions []Position, spot, band float64) float64 {
	var sum, n, allSum float64
	lo, hi := spot*(1-band), spot*(1+band)
	for _, p := range positions {
		allSum += p.Vol
		if p.Strike >= lo && p.Strike <= hi {
			sum += p.Vol
			n++
		}
	}
	if n > 0 {
		return sum / n
	}
	if len(positions) == 0 {
		return math.NaN()
	}
	return allSum / float64(len(positions))
}
