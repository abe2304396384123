package gex

import (
	"math"

	"github.com/LoppVicious/QuantDesk-Web/internal/greeks"
)

// FlipGrid describes the candidate price grid: Points evenly spaced prices
// from spot*(1-Band) to spot*(1+Band), both ends included.
type FlipGrid struct {
	Band   float64
	Points int
}

// DefaultFlipGrid is ±30% around spot with 40 points.
var DefaultFlipGrid = FlipGrid{Band: 0.3, Points: 40}

// Flip is the solver's answer. Exact is false when no sign change was found
// and Level is only the grid point with the smallest absolute exposure.
type Flip struct {
	Level float64 `json:"level"`
	Exact bool    `json:"exact"`
}

// Prices returns the grid around spot.
func (g FlipGrid) Prices(spot float64) []float64 {
	return linspace(spot*(1-g.Band), spot*(1+g.Band), g.Points)
}

func linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	step := (stop - start) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// NetExposureCurve evaluates aggregate signed gamma exposure at each price.
func NetExposureCurve(positions []Position, prices []float64, rate float64) []float64 {
	strikes, expiries, vols := columns(positions)
	grid := greeks.GammaGrid(prices, strikes, expiries, vols, rate)

	net := make([]float64, len(prices))
	for i, row := range grid {
		if len(row) != len(positions) {
			continue
		}
		var sum float64
		for j, g := range row {
			sum += g * positions[j].OpenInterest * positions[j].Sign
		}
		net[i] = sum * prices[i] * ContractMultiplier
	}
	return net
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// SolveFlip finds the price nearest spot at which net exposure changes sign.
func SolveFlip(positions []Position, spot, rate float64, grid FlipGrid) Flip {
	prices := grid.Prices(spot)
	if len(prices) == 0 {
		return Flip{Level: spot}
	}
	net := NetExposureCurve(positions, prices, rate)

	best := -1
	for i := 0; i+1 < len(net); i++ {
		if sign(net[i]) == sign(net[i+1]) {
			continue
		}
		if best < 0 || math.Abs(prices[i]-spot) < math.Abs(prices[best]-spot) {
			best = i
		}
	}

	if best >= 0 {
		return Flip{
			Level: interpolate(prices[best], prices[best+1], net[best], net[best+1]),
			Exact: true,
		}
	}

	closest := 0
	for i := 1; i < len(net); i++ {
		if math.Abs(net[i]) < math.Abs(net[closest]) {
			closest = i
		}
	}
	return Flip{Level: prices[closest]}
}

// interpolate returns the zero of the line through (x1,y1) and (x2,y2),
// or x1 when the segment is flat.
func interpolate(x1, x2, y1, y2 float64) float64 {
	if y2 == y1 {
		return x1
	}
	return x1 - y1*(x2-x1)/(y2-y1)
}
