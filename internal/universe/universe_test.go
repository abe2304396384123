package universe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

const sampleCSV = `Symbol,Security,GICS Sector,GICS Sub-Industry
MMM,3M,Industrials,Industrial Conglomerates
BRK.B,Berkshire Hathaway,Financials,Multi-Sector Holdings
 xom ,ExxonMobil,Energy,Integrated Oil & Gas
`

func TestParse(t *testing.T) {
	got, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 constituents, got %d", len(got))
	}
	if got[1].Symbol != "BRK-B" || got[1].Sector != "Financials" {
		t.Errorf("unexpected share-class handling %+v", got[1])
	}
	if got[2].Symbol != "XOM" {
		t.Errorf("expected trimmed upper-case symbol, got %q", got[2].Symbol)
	}
}

func TestParse_MissingSymbolColumn(t *testing.T) {
	if _, err := Parse(strings.NewReader("Ticker,Sector\nAAPL,Tech\n")); err == nil {
		t.Error("expected error for missing Symbol column")
	}
}

func TestLoader_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleCSV)
	}))
	defer server.Close()

	l := NewLoader(Config{Source: server.URL, Timeout: 5 * time.Second}, zap.NewNop())
	got, err := l.Constituents(context.Background())
	if err != nil || len(got) != 3 {
		t.Fatalf("expected 3 constituents, got %d (%v)", len(got), err)
	}
}

func TestLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constituents.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(Config{Source: path}, zap.NewNop())
	got, err := l.Constituents(context.Background())
	if err != nil || len(got) != 3 {
		t.Fatalf("expected 3 constituents, got %d (%v)", len(got), err)
	}
}

func TestLoader_Fallbacks(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, sampleCSV)
	}))
	defer server.Close()

	// Disabled fallback surfaces the error
	fail.Store(true)
	strict := NewLoader(Config{Source: server.URL, Timeout: time.Second}, zap.NewNop())
	if _, err := strict.Constituents(context.Background()); err == nil {
		t.Error("expected error without fallback")
	}

	// Static fallback
	l := NewLoader(Config{Source: server.URL, Timeout: time.Second, FallbackEnabled: true}, zap.NewNop())
	got, err := l.Constituents(context.Background())
	if err != nil || len(got) != len(Fallback) || got[0].Symbol != "SPY" {
		t.Errorf("expected static fallback, got %v (%v)", got, err)
	}

	// Last good list wins over the static one
	fail.Store(false)
	if _, err := l.Constituents(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fail.Store(true)
	got, err = l.Constituents(context.Background())
	if err != nil || len(got) != 3 {
		t.Errorf("expected cached list of 3, got %d (%v)", len(got), err)
	}
}

func TestLoader_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleCSV)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLoader(Config{Source: server.URL, FallbackEnabled: true}, zap.NewNop())
	if _, err := l.Constituents(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
