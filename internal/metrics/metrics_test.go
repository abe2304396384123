package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ScanFinished("completed", 3*time.Second)
	m.ScanFinished("failed", time.Second)
	m.TickerOutcome("ok")
	m.TickerOutcome("ok")
	m.TickerOutcome("fault")
	m.ProviderRequest("chart", "ok")
	m.BreakerState("yahoo", 2)

	if v := testutil.ToFloat64(m.scans.WithLabelValues("completed")); v != 1 {
		t.Errorf("expected 1 completed scan, got %v", v)
	}
	if v := testutil.ToFloat64(m.tickerOutcomes.WithLabelValues("ok")); v != 2 {
		t.Errorf("expected 2 ok outcomes, got %v", v)
	}
	if v := testutil.ToFloat64(m.breakerState.WithLabelValues("yahoo")); v != 2 {
		t.Errorf("expected breaker state 2, got %v", v)
	}
	if n := testutil.CollectAndCount(m.scanDuration); n != 1 {
		t.Errorf("expected one histogram series, got %d", n)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ScanFinished("completed", time.Second)
	m.TickerOutcome("ok")
	m.ProviderRequest("chart", "ok")
	m.BreakerState("yahoo", 0)
}
