// Package universe loads the list of tickers a scan may cover.
package universe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/market"
)

const (
	symbolColumn = "symbol"
	sectorColumn = "gics sector"
)

// Fallback is served when the constituents list cannot be loaded.
var Fallback = []market.Constituent{
	{Symbol: "SPY", Sector: "ETF"},
	{Symbol: "AAPL", Sector: "Tech"},
}

type Config struct {
	Source          string // http(s) URL or local path of the constituents CSV
	FallbackEnabled bool
	Timeout         time.Duration
}

// Loader reads a constituents CSV with Symbol and GICS Sector columns.
type Loader struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.Mutex
	lastGood []market.Constituent
}

func NewLoader(cfg Config, logger *zap.Logger) *Loader {
	return &Loader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Constituents returns the current universe in source order. When loading
// fails it serves the last good list, then the static fallback if enabled.
func (l *Loader) Constituents(ctx context.Context) ([]market.Constituent, error) {
	list, err := l.load(ctx)
	if err == nil {
		l.mu.Lock()
		l.lastGood = list
		l.mu.Unlock()
		return list, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	l.mu.Lock()
	cached := l.lastGood
	l.mu.Unlock()

	switch {
	case len(cached) > 0:
		l.logger.Warn("constituents unavailable, using last loaded list", zap.Error(err), zap.Int("count", len(cached)))
		return cached, nil
	case l.cfg.FallbackEnabled:
		l.logger.Warn("constituents unavailable, using fallback list", zap.Error(err))
		return append([]market.Constituent(nil), Fallback...), nil
	default:
		return nil, fmt.Errorf("loading constituents: %w", err)
	}
}

func (l *Loader) load(ctx context.Context) ([]market.Constituent, error) {
	if l.cfg.Source == "" {
		return nil, errors.New("no constituents source configured")
	}

	if !strings.HasPrefix(l.cfg.Source, "http://") && !strings.HasPrefix(l.cfg.Source, "https://") {
		f, err := os.Open(l.cfg.Source)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return Parse(f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.Source, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching constituents: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching constituents: status %d", resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Parse reads a constituents CSV. Share-class dots become dashes to match
// quote symbols (BRK.B is quoted as BRK-B).
func Parse(r io.Reader) ([]market.Constituent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	symIdx, ok := col[symbolColumn]
	if !ok {
		return nil, errors.New("constituents csv missing required column: Symbol")
	}
	secIdx, hasSector := col[sectorColumn]

	var out []market.Constituent
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if symIdx >= len(rec) {
			continue
		}
		sym := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(rec[symIdx])), ".", "-")
		if sym == "" {
			continue
		}
		c := market.Constituent{Symbol: sym}
		if hasSector && secIdx < len(rec) {
			c.Sector = strings.TrimSpace(rec[secIdx])
		}
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, errors.New("constituents csv has no rows")
	}
	return out, nil
}
