package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/LoppVicious/QuantDesk-Web/internal/gex"
)

func TestFiniteResults_UntradedChainEncodes(t *testing.T) {
	options := sampleOptions()
	for i := range options {
		options[i].LastPrice = 0
	}
	snap := snapshotOf("QUIET", 130, options)

	out := Evaluate(snap, "Utilities", Params{Rate: 0.045, Lookback: 30}, 0.10)
	if out.Kind != KindOK {
		t.Fatalf("expected ok, got %v: %s", out.Kind, out.Reason)
	}
	if !math.IsNaN(out.Result.Liquidity) {
		t.Fatalf("expected NaN liquidity without traded contracts, got %v", out.Result.Liquidity)
	}
	if _, err := json.Marshal([]Result{*out.Result}); err == nil {
		t.Fatal("expected raw NaN to be rejected by encoding/json")
	}

	b, err := json.Marshal(FiniteResults([]Result{*out.Result}))
	if err != nil {
		t.Fatalf("encoding finite results: %v", err)
	}
	if !strings.Contains(string(b), `"liquidity":0`) {
		t.Errorf("expected liquidity 0, got %s", b)
	}
	if !math.IsNaN(out.Result.Liquidity) {
		t.Error("Finite must not modify the original result")
	}
}

func TestFiniteResults_NeverNil(t *testing.T) {
	b, err := json.Marshal(FiniteResults(nil))
	if err != nil || string(b) != "[]" {
		t.Errorf("expected [], got %s (%v)", b, err)
	}
}

func TestAssetProfile_Finite(t *testing.T) {
	nan := math.NaN()
	p := &AssetProfile{
		Ticker:    "ACME",
		Price:     100,
		GammaFlip: math.Inf(1),
		ATMIV:     nan,
		Profile:   []gex.StrikeBucket{{Strike: 100, NetGammaExposure: nan, TotalOpenInterest: 10}},
		History:   []HistoryPoint{{Date: "2025-01-02", Close: 100, SMA20: &nan}},
	}

	got := p.Finite()
	if got.GammaFlip != 0 || got.ATMIV != 0 || got.Price != 100 {
		t.Errorf("unexpected scalars %+v", got)
	}
	if got.Profile[0].NetGammaExposure != 0 || got.Profile[0].TotalOpenInterest != 10 {
		t.Errorf("unexpected bucket %+v", got.Profile[0])
	}
	if got.History[0].SMA20 == nil || *got.History[0].SMA20 != 0 || got.History[0].SMA50 != nil {
		t.Errorf("unexpected history point %+v", got.History[0])
	}
	if !math.IsNaN(*p.History[0].SMA20) || !math.IsNaN(p.Profile[0].NetGammaExposure) {
		t.Error("Finite must copy history and profile")
	}
	if _, err := json.Marshal(got); err != nil {
		t.Errorf("encoding finite profile: %v", err)
	}
}
