package analysis

import "math"

// TradingDaysPerYear annualises daily realized volatility.
const TradingDaysPerYear = 252

// SMA is the mean of the last n values, NaN when fewer than n exist.
func SMA(values []float64, n int) float64 {
	if n <= 0 || len(values) < n {
		return math.NaN()
	}
	return mean(values[len(values)-n:])
}

// RollingSMA returns one entry per value; entries before the first full
// window are nil.
func RollingSMA(values []float64, n int) []*float64 {
	out := make([]*float64, len(values))
	if n <= 0 {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			avg := sum / float64(n)
			out[i] = &avg
		}
	}
	return out
}

// LogReturns returns ln(p[i]/p[i-1]), skipping pairs with a non-positive
// price.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] <= 0 || prices[i-1] <= 0 {
			continue
		}
		out = append(out, math.Log(prices[i]/prices[i-1]))
	}
	return out
}

// RealizedVol is the sample standard deviation of the last lookback log
// returns, annualised. NaN with fewer than two returns.
func RealizedVol(closes []float64, lookback int) float64 {
	rets := LogReturns(closes)
	if lookback > 0 && len(rets) > lookback {
		rets = rets[len(rets)-lookback:]
	}
	return sampleStd(rets) * math.Sqrt(TradingDaysPerYear)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
