package provider

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"github.com/scmhub/calendar"

	"github.com/LoppVicious/QuantDesk-Web/internal/market"
)

const (
	syntheticBase = 150.0
	syntheticBars = 100
)

// Synthetic generates deterministic stand-in market data. The same ticker
// always yields the same series for a given day, so spot, history and
// chain agree with each other.
type Synthetic struct {
	nyse *calendar.Calendar
	loc  *time.Location
	now  func() time.Time
}

func NewSynthetic() *Synthetic {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Synthetic{
		nyse: calendar.XNYS(),
		loc:  loc,
		now:  time.Now,
	}
}

func seed(ticker string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	return h.Sum64()
}

// businessDays returns the last n NYSE sessions ending at or before now,
// oldest first.
func (s *Synthetic) businessDays(n int) []time.Time {
	now := s.now().In(s.loc)
	d := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, s.loc)

	days := make([]time.Time, 0, n)
	for len(days) < n {
		if s.nyse.IsBusinessDay(d) {
			days = append(days, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days
}

// nextBusinessDay rolls t forward to the first NYSE session on or after it.
func (s *Synthetic) nextBusinessDay(t time.Time) time.Time {
	for i := 0; i < 10 && !s.nyse.IsBusinessDay(t); i++ {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

func (s *Synthetic) series(ticker string) []market.Bar {
	rng := rand.New(rand.NewPCG(seed(ticker), 0x9e3779b97f4a7c15))
	days := s.businessDays(syntheticBars)

	bars := make([]market.Bar, len(days))
	price := syntheticBase
	for i, d := range days {
		price += rng.NormFloat64()
		if price < 1 {
			price = 1
		}
		bars[i] = market.Bar{
			Date:   d,
			Open:   price * 0.99,
			High:   price * 1.02,
			Low:    price * 0.98,
			Close:  price,
			Volume: float64(1000 + rng.IntN(999000)),
		}
	}
	return bars
}

// History implements Provider. The synthetic series always covers the
// last 100 sessions regardless of days.
func (s *Synthetic) History(_ context.Context, ticker string, _ int) ([]market.Bar, error) {
	return s.series(ticker), nil
}

// SpotPrice implements Provider.
func (s *Synthetic) SpotPrice(_ context.Context, ticker string) (float64, error) {
	bars := s.series(ticker)
	return bars[len(bars)-1].Close, nil
}

// Options implements Provider with a symmetric strike ladder around spot for
// a weekly and a monthly expiry. Call interest peaks above spot and put
// interest below it.
func (s *Synthetic) Options(ctx context.Context, ticker string, maxDTE int) (*market.Chain, error) {
	spot, _ := s.SpotPrice(ctx, ticker)
	now := s.now().In(s.loc)

	chain := &market.Chain{Ticker: ticker, Spot: spot, Synthetic: true}
	for _, offset := range []int{7, 30} {
		expiry := s.nextBusinessDay(now.AddDate(0, 0, offset))
		dte := expiry.Sub(now).Hours() / 24
		if maxDTE > 0 && dte > float64(maxDTE) && len(chain.Calls) > 0 {
			continue
		}
		id := expiry.Format("2006-01-02")

		for i := -6; i <= 6; i++ {
			strike := math.Round(spot*(1+0.025*float64(i))*100) / 100
			moneyness := float64(i) * 0.025
			iv := 0.22 + 0.6*moneyness*moneyness
			mid := math.Max(spot*0.02*math.Exp(-math.Abs(moneyness)*8), 0.05)

			chain.Calls = append(chain.Calls, market.OptionRecord{
				Strike:            strike,
				Type:              market.Call,
				OpenInterest:      hump(i, 2),
				ImpliedVolatility: iv,
				DaysToExpiry:      dte,
				ExpiryID:          id,
				Bid:               mid * 0.95,
				Ask:               mid * 1.05,
				LastPrice:         mid,
			})
			chain.Puts = append(chain.Puts, market.OptionRecord{
				Strike:            strike,
				Type:              market.Put,
				OpenInterest:      hump(i, -2),
				ImpliedVolatility: iv + 0.02,
				DaysToExpiry:      dte,
				ExpiryID:          id,
				Bid:               mid * 0.95,
				Ask:               mid * 1.05,
				LastPrice:         mid,
			})
		}
	}
	return chain, nil
}

// hump is open interest peaking at ladder index peak.
func hump(i, peak int) float64 {
	d := float64(i - peak)
	return math.Round(5000 * math.Exp(-d*d/8))
}
