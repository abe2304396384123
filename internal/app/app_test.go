package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
	"github.com/LoppVicious/QuantDesk-Web/internal/config"
	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
)

func testConfig(t *testing.T, upstream string) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	csv := filepath.Join(t.TempDir(), "constituents.csv")
	body := "Symbol,Security,GICS Sector\nXOM,Exxon,Energy\nCVX,Chevron,Energy\nAAPL,Apple,Information Technology\n"
	if err := os.WriteFile(csv, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg.Provider.BaseURL = upstream
	cfg.Provider.RetryCount = 0
	cfg.Provider.RatePerSecond = 100
	cfg.Universe.URL = csv
	return cfg
}

func TestApp_ScanFallsBackToSyntheticData(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	a, err := New(context.Background(), testConfig(t, upstream.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("wiring app: %v", err)
	}
	defer a.Close()

	req := a.Scanner.Normalize(scan.Request{Sector: "energy"})
	id, err := a.Scanner.Start(context.Background(), req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	a.Scanner.Shutdown(context.Background())

	task, err := a.Scanner.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if task.Status != scan.StatusCompleted {
		t.Fatalf("expected completed scan, got %s (%s)", task.Status, task.Error)
	}
	if len(task.Results) != 2 || task.Results[0].Ticker != "CVX" || task.Results[1].Ticker != "XOM" {
		t.Fatalf("expected CVX and XOM results, got %+v", task.Results)
	}
	for _, r := range task.Results {
		if !r.Synthetic {
			t.Errorf("%s: expected result flagged synthetic", r.Ticker)
		}
	}
}

func TestApp_ProfileWithoutFallback(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer upstream.Close()

	cfg := testConfig(t, upstream.URL)
	cfg.Provider.FallbackEnabled = false
	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("wiring app: %v", err)
	}
	defer a.Close()

	_, err = a.Engine.Profile(context.Background(), "NOPE", analysis.ProfileParams{Rate: 0.045, MaxDTE: 45})
	if err == nil {
		t.Fatal("expected not found")
	}

	handler, err := a.Handler()
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/asset/NOPE", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "quantdesk_provider_requests_total") {
		t.Errorf("expected provider metrics to be exposed, got %d", rec.Code)
	}
}
