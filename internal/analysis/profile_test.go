package analysis

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/gex"
	"github.com/LoppVicious/QuantDesk-Web/internal/market"
	"github.com/LoppVicious/QuantDesk-Web/internal/provider"
)

func testEngine(mp *mockProvider) *Engine {
	return NewEngine(mp, EngineConfig{
		Window:  gex.DefaultWindow,
		Flip:    gex.DefaultFlipGrid,
		ATMBand: 0.10,
	}, zap.NewNop())
}

func TestProfile_ZeroSpotIsNotFound(t *testing.T) {
	mp := &mockProvider{spot: 0}
	_, err := testEngine(mp).Profile(context.Background(), "GHOST", ProfileParams{Rate: 0.045, MaxDTE: 45})

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Nothing past the price check may run
	if mp.historyCalls != 0 || mp.optionsCalls != 0 {
		t.Errorf("expected no further fetches, got history=%d options=%d", mp.historyCalls, mp.optionsCalls)
	}
}

func TestProfile_CallAbovePutBelow(t *testing.T) {
	mp := &mockProvider{
		spot: 100,
		bars: linearBars(60, 90, 0.2),
		chain: &market.Chain{
			Spot:  100,
			Calls: []market.OptionRecord{{Strike: 110, Type: market.Call, OpenInterest: 500, ImpliedVolatility: 0.2, DaysToExpiry: 30}},
			Puts:  []market.OptionRecord{{Strike: 90, Type: market.Put, OpenInterest: 500, ImpliedVolatility: 0.2, DaysToExpiry: 30}},
		},
	}

	prof, err := testEngine(mp).Profile(context.Background(), "TEST", ProfileParams{Rate: 0.045, MaxDTE: 45})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if prof.CallWall != 110 || prof.PutWall != 90 {
		t.Errorf("expected walls 110/90, got %v/%v", prof.CallWall, prof.PutWall)
	}
	if !prof.FlipExact || prof.GammaFlip <= 90 || prof.GammaFlip >= 110 {
		t.Errorf("expected exact flip in (90, 110), got %v exact=%v", prof.GammaFlip, prof.FlipExact)
	}
	if len(prof.Profile) != 2 {
		t.Errorf("expected 2 strike buckets, got %d", len(prof.Profile))
	}
	if prof.ATMIV != 0.2 {
		t.Errorf("expected ATM IV 0.2, got %v", prof.ATMIV)
	}

	if len(prof.History) != 60 {
		t.Fatalf("expected 60 history points, got %d", len(prof.History))
	}
	if prof.History[18].SMA20 != nil || prof.History[19].SMA20 == nil {
		t.Error("SMA20 should start at the 20th bar")
	}
	if prof.History[48].SMA50 != nil || prof.History[49].SMA50 == nil {
		t.Error("SMA50 should start at the 50th bar")
	}
}

func TestProfile_NoLivePositions(t *testing.T) {
	mp := &mockProvider{
		spot:  100,
		chain: &market.Chain{Spot: 100, Calls: []market.OptionRecord{{Strike: 100, Type: market.Call, OpenInterest: 0, ImpliedVolatility: 0.2}}},
	}

	_, err := testEngine(mp).Profile(context.Background(), "DEAD", ProfileParams{Rate: 0.045})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProfile_SourceFailureIsNotNotFound(t *testing.T) {
	mp := &mockProvider{spotErr: provider.ErrUnavailable}

	_, err := testEngine(mp).Profile(context.Background(), "DOWN", ProfileParams{Rate: 0.045})
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a computation failure, got %v", err)
	}
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Errorf("expected wrapped ErrUnavailable, got %v", err)
	}
}
