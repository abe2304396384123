package provider

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/LoppVicious/QuantDesk-Web/internal/market"
)

// number decodes JSON numbers, numeric strings and null. Anything that is
// not a finite number becomes 0.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*n = 0
		return nil
	}
	*n = number(v)
	return nil
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartQuote struct {
	Open   []number `json:"open"`
	High   []number `json:"high"`
	Low    []number `json:"low"`
	Close  []number `json:"close"`
	Volume []number `json:"volume"`
}

type chartResult struct {
	Meta struct {
		Symbol             string `json:"symbol"`
		RegularMarketPrice number `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type optionContract struct {
	ContractSymbol    string `json:"contractSymbol"`
	Strike            number `json:"strike"`
	LastPrice         number `json:"lastPrice"`
	Bid               number `json:"bid"`
	Ask               number `json:"ask"`
	OpenInterest      number `json:"openInterest"`
	ImpliedVolatility number `json:"impliedVolatility"`
	Expiration        int64  `json:"expiration"`
}

type optionPage struct {
	ExpirationDate int64            `json:"expirationDate"`
	Calls          []optionContract `json:"calls"`
	Puts           []optionContract `json:"puts"`
}

type optionResult struct {
	UnderlyingSymbol string  `json:"underlyingSymbol"`
	ExpirationDates  []int64 `json:"expirationDates"`
	Quote            struct {
		RegularMarketPrice number `json:"regularMarketPrice"`
	} `json:"quote"`
	Options []optionPage `json:"options"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []optionResult `json:"result"`
		Error  *apiError      `json:"error"`
	} `json:"optionChain"`
}

func at(xs []number, i int) float64 {
	if i < len(xs) {
		return float64(xs[i])
	}
	return 0
}

// toBars converts a chart result, dropping rows without a close.
func toBars(r chartResult) []market.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	bars := make([]market.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(q.Close, i)
		if c <= 0 {
			continue
		}
		bars = append(bars, market.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  c,
			Volume: at(q.Volume, i),
		})
	}
	return bars
}

func daysUntil(expiry int64, now time.Time) float64 {
	d := time.Unix(expiry, 0).Sub(now).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

func toRecords(contracts []optionContract, side market.OptionType, expiry int64, now time.Time) []market.OptionRecord {
	out := make([]market.OptionRecord, 0, len(contracts))
	for _, c := range contracts {
		exp := c.Expiration
		if exp == 0 {
			exp = expiry
		}
		out = append(out, market.OptionRecord{
			Symbol:            c.ContractSymbol,
			Strike:            float64(c.Strike),
			Type:              side,
			OpenInterest:      float64(c.OpenInterest),
			ImpliedVolatility: float64(c.ImpliedVolatility),
			DaysToExpiry:      daysUntil(exp, now),
			ExpiryID:          time.Unix(exp, 0).UTC().Format("2006-01-02"),
			Bid:               float64(c.Bid),
			Ask:               float64(c.Ask),
			LastPrice:         float64(c.LastPrice),
		})
	}
	return out
}

// selectExpiries picks up to limit expirations within maxDTE days of now,
// nearest first. With nothing in range the nearest unexpired date is used.
func selectExpiries(dates []int64, now time.Time, maxDTE, limit int) []int64 {
	sorted := append([]int64(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var upcoming []int64
	for _, d := range sorted {
		if time.Unix(d, 0).Add(24 * time.Hour).After(now) {
			upcoming = append(upcoming, d)
		}
	}

	var out []int64
	for _, d := range upcoming {
		if limit > 0 && len(out) >= limit {
			break
		}
		if maxDTE > 0 && daysUntil(d, now) > float64(maxDTE) {
			break
		}
		out = append(out, d)
	}
	if len(out) == 0 && len(upcoming) > 0 {
		out = upcoming[:1]
	}
	return out
}
