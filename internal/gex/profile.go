package gex

import "github.com/LoppVicious/QuantDesk-Web/internal/market"

// Profile is the strike-indexed exposure view of one option universe.
type Profile struct {
	Spot        float64
	Buckets     []StrikeBucket // windowed, possibly downsampled
	Downsampled bool
	CallWall    float64
	PutWall     float64
	ATMIV       float64
	Positions   []Position
}

// Aggregate builds a Profile from raw option records. It never evaluates a
// Greek when spot is unavailable.
func Aggregate(records []market.OptionRecord, spot, rate float64, window WindowPolicy, atmBand float64) (*Profile, error) {
	if !(spot > 0) {
		return nil, ErrNoSpot
	}

	positions := NewPositions(records)
	if len(positions) == 0 {
		return nil, ErrNoPositions
	}

	// Walls come from the filtered rows, before windowing.
	live := make([]market.OptionRecord, 0, len(positions))
	for _, r := range records {
		if r.OpenInterest > 0 && r.ImpliedVolatility > 0 && r.Strike > 0 {
			live = append(live, r)
		}
	}
	callWall, putWall := Walls(live)

	buckets, downsampled := window.Apply(Buckets(ExposureRows(positions, spot, rate)), spot)

	return &Profile{
		Spot:        spot,
		Buckets:     buckets,
		Downsampled: downsampled,
		CallWall:    callWall,
		PutWall:     putWall,
		ATMIV:       ATMImpliedVol(positions, spot, atmBand),
		Positions:   positions,
	}, nil
}

// Flip solves for the gamma flip of this profile's positions.
func (p *Profile) Flip(rate float64, grid FlipGrid) Flip {
	return SolveFlip(p.Positions, p.Spot, rate, grid)
}
