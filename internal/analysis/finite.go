package analysis

import (
	"math"

	"github.com/LoppVicious/QuantDesk-Web/internal/gex"
)

// JSON has no NaN or Inf. Finite copies replace them with 0 before a value
// is encoded.

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func finitePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := finite(*v)
	return &f
}

// Finite returns a copy of r with every non-finite float set to 0.
func (r Result) Finite() Result {
	r.Price = finite(r.Price)
	r.SMA20 = finite(r.SMA20)
	r.SMA50 = finite(r.SMA50)
	r.DistSMA20Pct = finite(r.DistSMA20Pct)
	r.DistSMA50Pct = finite(r.DistSMA50Pct)
	r.RV = finite(r.RV)
	r.IV = finite(r.IV)
	r.VRP = finite(r.VRP)
	r.Liquidity = finite(r.Liquidity)
	r.CallWall = finite(r.CallWall)
	r.PutWall = finite(r.PutWall)
	r.DistCallWallPct = finite(r.DistCallWallPct)
	r.DistPutWallPct = finite(r.DistPutWallPct)
	r.GammaPower = finite(r.GammaPower)
	return r
}

// FiniteResults applies Finite to each result. The returned slice is never
// nil.
func FiniteResults(results []Result) []Result {
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r.Finite()
	}
	return out
}

// Finite returns a copy of p with every non-finite float set to 0. Profile
// and History are copied, not shared.
func (p *AssetProfile) Finite() AssetProfile {
	out := *p
	out.Price = finite(p.Price)
	out.CallWall = finite(p.CallWall)
	out.PutWall = finite(p.PutWall)
	out.GammaFlip = finite(p.GammaFlip)
	out.ATMIV = finite(p.ATMIV)

	out.Profile = make([]gex.StrikeBucket, len(p.Profile))
	for i, b := range p.Profile {
		out.Profile[i] = gex.StrikeBucket{
			Strike:            finite(b.Strike),
			NetGammaExposure:  finite(b.NetGammaExposure),
			TotalOpenInterest: finite(b.TotalOpenInterest),
		}
	}

	out.History = make([]HistoryPoint, len(p.History))
	for i, h := range p.History {
		out.History[i] = HistoryPoint{
			Date:  h.Date,
			Close: finite(h.Close),
			SMA20: finitePtr(h.SMA20),
			SMA50: finitePtr(h.SMA50),
		}
	}
	return out
}
