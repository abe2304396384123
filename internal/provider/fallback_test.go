package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/market"
)

type stubProvider struct {
	bars  []market.Bar
	spot  float64
	chain *market.Chain
	err   error
	calls int
}

func (s *stubProvider) History(ctx context.Context, ticker string, days int) ([]market.Bar, error) {
	s.calls++
	return s.bars, s.err
}

func (s *stubProvider) SpotPrice(ctx context.Context, ticker string) (float64, error) {
	s.calls++
	return s.spot, s.err
}

func (s *stubProvider) Options(ctx context.Context, ticker string, maxDTE int) (*market.Chain, error) {
	s.calls++
	return s.chain, s.err
}

func TestFallback_PrimaryHealthy(t *testing.T) {
	primary := &stubProvider{spot: 42}
	secondary := &stubProvider{spot: 1}
	f := NewFallback(primary, secondary, nil, zap.NewNop())

	spot, err := f.SpotPrice(context.Background(), "AAPL")
	if err != nil || spot != 42 {
		t.Errorf("expected primary spot 42, got %v (%v)", spot, err)
	}
	if secondary.calls != 0 {
		t.Error("secondary should not be consulted")
	}
}

func TestFallback_OnErrorAndEmpty(t *testing.T) {
	primary := &stubProvider{err: ErrUnavailable}
	secondary := &stubProvider{
		spot:  7,
		bars:  []market.Bar{{Close: 7}},
		chain: &market.Chain{Spot: 7, Calls: []market.OptionRecord{{Strike: 7}}},
	}
	f := NewFallback(primary, secondary, nil, zap.NewNop())
	ctx := context.Background()

	if spot, err := f.SpotPrice(ctx, "X"); err != nil || spot != 7 {
		t.Errorf("expected fallback spot, got %v (%v)", spot, err)
	}
	if bars, err := f.History(ctx, "X", 30); err != nil || len(bars) != 1 {
		t.Errorf("expected fallback history, got %v (%v)", bars, err)
	}
	if chain, err := f.Options(ctx, "X", 30); err != nil || chain.Spot != 7 {
		t.Errorf("expected fallback chain, got %v (%v)", chain, err)
	}

	// Zero spot without an error is also unusable
	primary.err = nil
	if spot, _ := f.SpotPrice(ctx, "X"); spot != 7 {
		t.Errorf("expected fallback on zero spot, got %v", spot)
	}
}

func TestFallback_DoesNotMaskCancellation(t *testing.T) {
	primary := &stubProvider{err: context.Canceled}
	secondary := &stubProvider{spot: 7}
	f := NewFallback(primary, secondary, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.SpotPrice(ctx, "X")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if secondary.calls != 0 {
		t.Error("secondary should not be consulted after cancellation")
	}
}

func TestSynthetic_Deterministic(t *testing.T) {
	s := NewSynthetic()
	fixed := time.Date(2025, 3, 12, 16, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	a, _ := s.History(ctx, "AAPL", 80)
	b, _ := s.History(ctx, "AAPL", 80)
	c, _ := s.History(ctx, "MSFT", 80)

	if len(a) != syntheticBars {
		t.Fatalf("expected %d bars, got %d", syntheticBars, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs between calls", i)
		}
		if wd := a[i].Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			t.Errorf("bar %d falls on %s", i, wd)
		}
		if i > 0 && !a[i-1].Date.Before(a[i].Date) {
			t.Errorf("bars not ascending at %d", i)
		}
	}
	if a[len(a)-1].Close == c[len(c)-1].Close {
		t.Error("expected different tickers to produce different series")
	}

	spot, _ := s.SpotPrice(ctx, "AAPL")
	if spot != a[len(a)-1].Close {
		t.Errorf("spot %v should equal last close %v", spot, a[len(a)-1].Close)
	}
}

func TestSynthetic_Chain(t *testing.T) {
	s := NewSynthetic()
	fixed := time.Date(2025, 3, 12, 16, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	chain, err := s.Options(context.Background(), "SPY", 45)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !chain.Synthetic || chain.Spot <= 0 {
		t.Errorf("unexpected chain header %+v", chain)
	}
	if len(chain.Calls) != 26 || len(chain.Puts) != 26 {
		t.Errorf("expected two expiries of 13 strikes, got %d calls %d puts", len(chain.Calls), len(chain.Puts))
	}

	// A tight max DTE keeps only the weekly expiry
	chain, _ = s.Options(context.Background(), "SPY", 10)
	if len(chain.Calls) != 13 {
		t.Errorf("expected 13 calls, got %d", len(chain.Calls))
	}
	for _, r := range chain.Records() {
		if r.OpenInterest <= 0 || r.ImpliedVolatility <= 0 || r.DaysToExpiry <= 0 {
			t.Errorf("degenerate synthetic record %+v", r)
		}
	}
}
