// Package scan runs market-wide screens: one ticker analysis per universe
// member, fanned out over a bounded worker pool, with progress published to
// a task store.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
	"github.com/LoppVicious/QuantDesk-Web/internal/market"
	"github.com/LoppVicious/QuantDesk-Web/internal/metrics"
)

// progressCeiling is the share of progress earned by ticker work; the rest
// is reserved for finalising the scan.
const progressCeiling = 90

// ErrManagerClosed is returned by Start once Shutdown has begun.
var ErrManagerClosed = errors.New("scan manager is shut down")

type Analyzer interface {
	Analyze(ctx context.Context, c market.Constituent, p analysis.Params) analysis.Outcome
}

type Universe interface {
	Constituents(ctx context.Context) ([]market.Constituent, error)
}

// Notifier is told about every scan that reaches a terminal state.
type Notifier interface {
	ScanCompleted(ctx context.Context, id string, req Request, s Summary) error
	ScanFailed(ctx context.Context, id string, req Request, reason string) error
}

type Config struct {
	Workers           int
	BatchSize         int
	TickerTimeout     time.Duration
	MaxTickers        int
	DefaultNumTickers int
	DefaultLookback   int
	DefaultMaxDTE     int
	RiskFreeRate      float64
}

type Manager struct {
	analyzer Analyzer
	universe Universe
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	cfg      Config
	logger   *zap.Logger
	inflight conc.WaitGroup
	base     context.Context
	stop     context.CancelFunc

	mu     sync.Mutex
	closed bool
	now      func() time.Time
}

// NewManager wires a scan manager. notifier may be nil.
func NewManager(a Analyzer, u Universe, s Store, n Notifier, m *metrics.Metrics, cfg Config, logger *zap.Logger) *Manager {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	base, stop := context.WithCancel(context.Background())
	return &Manager{
		base:     base,
		stop:     stop,
		analyzer: a,
		universe: u,
		store:    s,
		notifier: n,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Normalize fills unset request fields from defaults and caps the ticker
// count.
func (m *Manager) Normalize(req Request) Request {
	if req.NumTickers <= 0 {
		req.NumTickers = m.cfg.DefaultNumTickers
	}
	if m.cfg.MaxTickers > 0 && req.NumTickers > m.cfg.MaxTickers {
		req.NumTickers = m.cfg.MaxTickers
	}
	if req.Lookback <= 0 {
		req.Lookback = m.cfg.DefaultLookback
	}
	if req.MaxDTE <= 0 {
		req.MaxDTE = m.cfg.DefaultMaxDTE
	}
	req.Sector = strings.TrimSpace(req.Sector)
	return req
}

// Start registers a pending task and runs the scan in the background. The
// scan outlives ctx's cancellation but keeps its values; only Shutdown
// interrupts it.
func (m *Manager) Start(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrManagerClosed
	}

	req = m.Normalize(req)
	id := uuid.NewString()

	if err := m.store.Create(ctx, &Task{ID: id, Status: StatusPending, Request: req}); err != nil {
		return "", fmt.Errorf("registering scan: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	unlink := context.AfterFunc(m.base, cancel)
	m.inflight.Go(func() {
		defer cancel()
		defer unlink()
		_, _ = m.Run(runCtx, id, req)
	})

	m.logger.Info("scan started", zap.String("task_id", id), zap.Stringer("request", req))
	return id, nil
}

// RunForeground registers a task and runs it on the caller's goroutine. ctx
// cancellation fails the scan.
func (m *Manager) RunForeground(ctx context.Context, req Request) (string, *Summary, error) {
	req = m.Normalize(req)
	id := uuid.NewString()

	if err := m.store.Create(ctx, &Task{ID: id, Status: StatusPending, Request: req}); err != nil {
		return "", nil, fmt.Errorf("registering scan: %w", err)
	}
	sum, err := m.Run(ctx, id, req)
	return id, sum, err
}

// Shutdown refuses new scans and waits for the ones started with Start. If
// ctx is done first, running scans are interrupted and finish as failed.
// It is safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("interrupting running scans", zap.Error(ctx.Err()))
		m.stop()
		<-done
	}
	m.stop()
}

// Status returns a snapshot of the task.
func (m *Manager) Status(ctx context.Context, id string) (*Task, error) {
	return m.store.Get(ctx, id)
}

// Run executes the scan for an already registered task and drives it to a
// terminal state. Only failures outside per-ticker work fail the scan.
func (m *Manager) Run(ctx context.Context, id string, req Request) (*Summary, error) {
	start := m.now()

	var (
		sum *Summary
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { sum, err = m.run(ctx, id, req, start) })
	if r := pc.Recovered(); r != nil {
		err = fmt.Errorf("scan panicked: %w", r.AsError())
	}

	if err != nil {
		m.fail(context.WithoutCancel(ctx), id, req, err, m.now().Sub(start))
		return nil, err
	}

	m.metrics.ScanFinished(string(StatusCompleted), sum.Duration)
	m.logger.Info("scan completed",
		zap.String("task_id", id),
		zap.Int("total", sum.Total),
		zap.Int("ok", sum.OK),
		zap.Int("unavailable", sum.Unavailable),
		zap.Int("fault", sum.Fault),
		zap.Duration("duration", sum.Duration),
	)
	if m.notifier != nil {
		if nerr := m.notifier.ScanCompleted(ctx, id, req, *sum); nerr != nil {
			m.logger.Warn("scan notification failed", zap.String("task_id", id), zap.Error(nerr))
		}
	}
	return sum, nil
}

func (m *Manager) run(ctx context.Context, id string, req Request, start time.Time) (*Summary, error) {
	if _, err := m.store.Update(ctx, id, Update{Status: StatusRunning}); err != nil {
		return nil, fmt.Errorf("marking scan running: %w", err)
	}

	all, err := m.universe.Constituents(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ticker universe: %w", err)
	}
	tickers := FilterSector(all, req.Sector)
	if req.NumTickers > 0 && len(tickers) > req.NumTickers {
		tickers = tickers[:req.NumTickers]
	}

	params := analysis.Params{
		Rate:     m.cfg.RiskFreeRate,
		Lookback: req.Lookback,
		MaxDTE:   req.MaxDTE,
	}
	results, sum, err := m.execute(ctx, id, tickers, params)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Ticker < results[j].Ticker })
	sum.Duration = m.now().Sub(start)

	if _, err := m.store.Update(ctx, id, Update{
		Status:   StatusCompleted,
		Progress: progress(100),
		Results:  results,
		Summary:  sum,
	}); err != nil {
		return nil, fmt.Errorf("finalising scan: %w", err)
	}
	return sum, nil
}

// execute fans tickers out to the worker pool. A single collector owns the
// counters and is the only writer of progress.
func (m *Manager) execute(ctx context.Context, id string, tickers []market.Constituent, p analysis.Params) ([]analysis.Result, *Summary, error) {
	sum := &Summary{Total: len(tickers)}
	results := make([]analysis.Result, 0, len(tickers))
	if len(tickers) == 0 {
		return results, sum, nil
	}

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan market.Constituent, m.cfg.Workers)
	outcomes := make(chan analysis.Outcome, m.cfg.Workers)

	// Start workers
	var wg conc.WaitGroup
	for i := 0; i < m.cfg.Workers; i++ {
		wg.Go(func() {
			m.worker(scanCtx, jobs, outcomes, p)
		})
	}

	// Send jobs
	go func() {
		defer close(jobs)
		for _, c := range tickers {
			select {
			case <-scanCtx.Done():
				return
			case jobs <- c:
			}
		}
	}()

	// Wait for workers and close outcomes
	var recovered *panics.Recovered
	go func() {
		recovered = wg.WaitAndRecover()
		close(outcomes)
	}()

	completed := 0
	for out := range outcomes {
		completed++
		switch {
		case out.Kind == analysis.KindOK && out.Result != nil:
			sum.OK++
			results = append(results, *out.Result)
		case out.Kind == analysis.KindUnavailable:
			sum.Unavailable++
		default:
			sum.Fault++
		}
		m.metrics.TickerOutcome(out.Kind.String())

		if completed%m.cfg.BatchSize == 0 && completed < len(tickers) {
			pct := completed * progressCeiling / len(tickers)
			if _, err := m.store.Update(ctx, id, Update{Progress: progress(pct)}); err != nil {
				m.logger.Warn("progress update failed", zap.String("task_id", id), zap.Error(err))
			}
		}
	}

	if recovered != nil {
		return nil, nil, fmt.Errorf("scan worker panicked: %w", recovered.AsError())
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan interrupted after %d of %d tickers: %w", completed, len(tickers), err)
	}
	return results, sum, nil
}

func (m *Manager) worker(ctx context.Context, jobs <-chan market.Constituent, outcomes chan<- analysis.Outcome, p analysis.Params) {
	for c := range jobs {
		out := m.analyzeOne(ctx, c, p)

		select {
		case <-ctx.Done():
			return
		case outcomes <- out:
		}
	}
}

// analyzeOne bounds a single analysis by the ticker timeout. An analysis
// that ignores its context is abandoned and reported as a fault.
func (m *Manager) analyzeOne(ctx context.Context, c market.Constituent, p analysis.Params) analysis.Outcome {
	if m.cfg.TickerTimeout <= 0 {
		return m.analyzer.Analyze(ctx, c, p)
	}

	uctx, cancel := context.WithTimeout(ctx, m.cfg.TickerTimeout)
	defer cancel()

	done := make(chan analysis.Outcome, 1)
	go func() {
		var out analysis.Outcome
		var pc panics.Catcher
		pc.Try(func() { out = m.analyzer.Analyze(uctx, c, p) })
		if r := pc.Recovered(); r != nil {
			out = analysis.Outcome{Ticker: c.Symbol, Kind: analysis.KindFault, Reason: fmt.Sprintf("panic: %v", r.Value)}
		}
		done <- out
	}()

	select {
	case out := <-done:
		return out
	case <-uctx.Done():
		m.logger.Warn("ticker analysis timed out", zap.String("ticker", c.Symbol), zap.Duration("timeout", m.cfg.TickerTimeout))
		return analysis.Outcome{Ticker: c.Symbol, Kind: analysis.KindFault, Reason: "analysis timed out"}
	}
}

func (m *Manager) fail(ctx context.Context, id string, req Request, cause error, d time.Duration) {
	m.logger.Error("scan failed", zap.String("task_id", id), zap.Error(cause))
	m.metrics.ScanFinished(string(StatusFailed), d)

	if _, err := m.store.Update(ctx, id, Update{Status: StatusFailed, Error: cause.Error()}); err != nil && !errors.Is(err, ErrTaskFinal) {
		m.logger.Error("recording scan failure", zap.String("task_id", id), zap.Error(err))
	}
	if m.notifier != nil {
		if err := m.notifier.ScanFailed(ctx, id, req, cause.Error()); err != nil {
			m.logger.Warn("scan notification failed", zap.String("task_id", id), zap.Error(err))
		}
	}
}

var allSectors = []string{"", "all", "todos"}

// FilterSector keeps constituents whose sector matches case-insensitively.
// An empty sector, "all" or "todos" keeps everything.
func FilterSector(all []market.Constituent, sector string) []market.Constituent {
	sector = strings.TrimSpace(sector)
	for _, s := range allSectors {
		if strings.EqualFold(sector, s) {
			return all
		}
	}

	var out []market.Constituent
	for _, c := range all {
		if strings.EqualFold(c.Sector, sector) {
			out = append(out, c)
		}
	}
	return out
}
