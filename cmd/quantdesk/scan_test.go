package main

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
)

func TestEncodeJSON_NonFiniteResults(t *testing.T) {
	results := []analysis.Result{
		{Ticker: "QUIET", Price: 42, Liquidity: math.NaN(), RV: math.Inf(1), NearWall: true},
		{Ticker: "CALM", Price: 10},
	}

	var buf bytes.Buffer
	if err := encodeJSON(&buf, analysis.FiniteResults(nearWall(results))); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var got []analysis.Result
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Ticker != "QUIET" || got[0].Liquidity != 0 || got[0].RV != 0 || got[0].Price != 42 {
		t.Errorf("unexpected output %+v", got)
	}
}

func TestEncodeJSON_EmptyScanIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := encodeJSON(&buf, analysis.FiniteResults(nearWall(nil))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := buf.String(); got != "[]\n" {
		t.Errorf("expected empty array, got %q", got)
	}
}
