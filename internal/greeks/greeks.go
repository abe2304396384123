// Package greeks evaluates closed-form Black-Scholes sensitivities over
// broadcast input slices.
package greeks

import "math"

// MinExpiry is the floor applied to time-to-expiry (in years) so that
// same-day contracts do not divide by zero.
const MinExpiry = 1e-4

var invSqrt2Pi = 1 / math.Sqrt(2*math.Pi)

// Kernel computes one Greek for a single set of inputs.
type Kernel func(s, k, t, r, sigma float64) float64

// Inputs holds broadcastable input slices. A slice of length 1 is
// broadcast against the common length of the others.
type Inputs struct {
	Spot   []float64
	Strike []float64
	Expiry []float64
	Rate   []float64
	Vol    []float64
}

// Scalar wraps a single value as a broadcastable slice.
func Scalar(v float64) []float64 {
	return []float64{v}
}

func normPDF(x float64) float64 {
	return invSqrt2Pi * math.Exp(-0.5*x*x)
}

// clean maps NaN, infinities and negative values to zero.
func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Gamma is the Black-Scholes gamma. Degenerate inputs (non-positive spot,
// strike or volatility) yield 0.
func Gamma(s, k, t, r, sigma float64) float64 {
	t = math.Max(t, MinExpiry)
	sqrtT := math.Sqrt(t)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	return clean(normPDF(d1) / (s * sigma * sqrtT))
}

// Evaluate applies kernel element-wise over the broadcast inputs. When the
// slice lengths cannot be broadcast together it returns a single zero.
func Evaluate(kernel Kernel, in Inputs) []float64 {
	cols := [][]float64{in.Spot, in.Strike, in.Expiry, in.Rate, in.Vol}

	n := 1
	for _, c := range cols {
		switch {
		case len(c) == 0:
			return []float64{0}
		case len(c) == 1:
		case n == 1:
			n = len(c)
		case len(c) != n:
			return []float64{0}
		}
	}

	at := func(c []float64, i int) float64 {
		if len(c) == 1 {
			return c[0]
		}
		return c[i]
	}

	out := make([]float64, n)
	for i := range out {
		out[i] = clean(kernel(at(in.Spot, i), at(in.Strike, i), at(in.Expiry, i), at(in.Rate, i), at(in.Vol, i)))
	}
	return out
}

// GammaVec evaluates Gamma over broadcast inputs.
func GammaVec(spot, strike, expiry, rate, vol []float64) []float64 {
	return Evaluate(Gamma, Inputs{Spot: spot, Strike: strike, Expiry: expiry, Rate: rate, Vol: vol})
}

// GammaGrid evaluates gamma on the outer product of candidate spots and
// an option universe described by parallel strike/expiry/vol slices.
// Row i corresponds to spots[i], column j to option j. If the option
// slices differ in length every row is a single zero.
func GammaGrid(spots, strikes, expiries, vols []float64, r float64) [][]float64 {
	rate := Scalar(r)
	out := make([][]float64, len(spots))
	for i, s := range spots {
		out[i] = GammaVec(Scalar(s), strikes, expiries, rate, vols)
	}
	return out
}
