package market

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// OptionRecord is a single option contract as delivered by a data provider.
// Numeric fields are already coerced: missing or invalid values are 0.
type OptionRecord struct {
	Symbol            string     `json:"symbol"`
	Strike            float64    `json:"strike"`
	Type              OptionType `json:"type"`
	OpenInterest      float64    `json:"open_interest"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	DaysToExpiry      float64    `json:"days_to_expiry"`
	ExpiryID          string     `json:"expiry_id"`
	Bid               float64    `json:"bid"`
	Ask               float64    `json:"ask"`
	LastPrice         float64    `json:"last_price"`
}

// Bar is one daily OHLCV observation.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Chain is the option universe for one underlying, split by side.
type Chain struct {
	Ticker    string
	Spot      float64
	Calls     []OptionRecord
	Puts      []OptionRecord
	Synthetic bool
}

// Records returns calls followed by puts.
func (c *Chain) Records() []OptionRecord {
	out := make([]OptionRecord, 0, len(c.Calls)+len(c.Puts))
	out = append(out, c.Calls...)
	out = append(out, c.Puts...)
	return out
}

// Empty reports whether the chain carries no contracts at all.
func (c *Chain) Empty() bool {
	return c == nil || (len(c.Calls) == 0 && len(c.Puts) == 0)
}

// Constituent is a member of the scan universe.
type Constituent struct {
	Symbol string `json:"symbol"`
	Sector string `json:"sector"`
}

// Snapshot bundles everything known about one ticker at analysis time.
// A non-positive Spot means no data is available.
type Snapshot struct {
	Ticker  string
	Spot    float64
	Options []OptionRecord
	History []Bar
}

// HasSpot reports whether the snapshot carries a usable price.
func (s Snapshot) HasSpot() bool {
	return s.Spot > 0
}

// Closes extracts closing prices in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
