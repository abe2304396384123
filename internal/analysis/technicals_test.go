package analysis

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	if got := SMA(vals, 2); got != 4.5 {
		t.Errorf("expected 4.5, got %v", got)
	}
	if got := SMA(vals, 6); !math.IsNaN(got) {
		t.Errorf("expected NaN for short series, got %v", got)
	}
}

func TestRollingSMA(t *testing.T) {
	got := RollingSMA([]float64{1, 2, 3, 4}, 2)
	if got[0] != nil {
		t.Errorf("expected nil before the first full window, got %v", *got[0])
	}
	for i, want := range []float64{1.5, 2.5, 3.5} {
		if got[i+1] == nil || *got[i+1] != want {
			t.Errorf("index %d: expected %v", i+1, want)
		}
	}
}

func TestRealizedVol_SampleStd(t *testing.T) {
	closes := []float64{100, 110, 99}
	r1, r2 := math.Log(1.1), math.Log(0.9)
	d := (r1 - r2) / 2
	// Two returns give n-1 = 1 in the denominator
	want := math.Sqrt(2*d*d) * math.Sqrt(252)

	if got := RealizedVol(closes, 30); math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRealizedVol_UsesLookbackTail(t *testing.T) {
	// A volatile head followed by a flat tail has zero tail volatility
	closes := []float64{100, 150, 80, 120, 120, 120, 120}
	if got := RealizedVol(closes, 3); got != 0 {
		t.Errorf("expected 0 over a flat tail, got %v", got)
	}
	if got := RealizedVol([]float64{100}, 30); !math.IsNaN(got) {
		t.Errorf("expected NaN with no returns, got %v", got)
	}
}

func TestLogReturns_SkipsNonPositive(t *testing.T) {
	got := LogReturns([]float64{100, 0, 100, 100})
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("unexpected returns %v", got)
	}
}
