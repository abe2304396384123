// Package metrics exposes prometheus collectors for scans and the market
// data provider. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quantdesk"

type Metrics struct {
	scans            *prometheus.CounterVec
	scanDuration     prometheus.Histogram
	tickerOutcomes   *prometheus.CounterVec
	providerRequests *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		scans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Scans finished, by terminal status.",
		}, []string{"status"}),
		scanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of completed scans.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		tickerOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticker_outcomes_total",
			Help:      "Per-ticker analysis outcomes (ok, unavailable, fault).",
		}, []string{"kind"}),
		providerRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Market data requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
	}
}

func (m *Metrics) ScanFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(status).Inc()
	if status == "completed" {
		m.scanDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) TickerOutcome(kind string) {
	if m == nil {
		return
	}
	m.tickerOutcomes.WithLabelValues(kind).Inc()
}

func (m *Metrics) ProviderRequest(endpoint, result string) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(endpoint, result).Inc()
}

func (m *Metrics) BreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(state))
}
