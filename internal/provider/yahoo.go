package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/LoppVicious/QuantDesk-Web/internal/market"
	"github.com/LoppVicious/QuantDesk-Web/internal/metrics"
)

const userAgent = "Mozilla/5.0 (compatible; quantdesk/1.0)"

// ClientConfig configures the Yahoo Finance client.
type ClientConfig struct {
	BaseURL        string
	RatePerSecond  int
	Timeout        time.Duration
	RetryCount     int
	RetryDelay     time.Duration
	MaxExpirations int
	Breaker        BreakerConfig
}

// BreakerConfig configures the circuit breaker in front of the source.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// YahooClient implements Provider against the public Yahoo Finance chart
// and options endpoints.
type YahooClient struct {
	httpClient     *http.Client
	baseURL        string
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
	retryCount     int
	retryDelay     time.Duration
	maxExpirations int
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

func NewYahooClient(cfg ClientConfig, m *metrics.Metrics, logger *zap.Logger) *YahooClient {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}

	ratePerSec := cfg.RatePerSecond
	if ratePerSec < 1 {
		ratePerSec = 1
	}

	minRequests := cfg.Breaker.MinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	failureRatio := cfg.Breaker.FailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.6
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "yahoo",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			m.BreakerState(name, int(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	})

	return &YahooClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		limiter:        rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		breaker:        breaker,
		retryCount:     cfg.RetryCount,
		retryDelay:     cfg.RetryDelay,
		maxExpirations: cfg.MaxExpirations,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

// History implements Provider.
func (c *YahooClient) History(ctx context.Context, ticker string, days int) ([]market.Bar, error) {
	now := c.now()
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(now.AddDate(0, 0, -days).Unix(), 10))
	q.Set("period2", strconv.FormatInt(now.Unix(), 10))
	q.Set("interval", "1d")

	res, err := c.chart(ctx, ticker, q)
	if err != nil {
		return nil, err
	}
	return toBars(*res), nil
}

// SpotPrice implements Provider. It prefers the live quote and falls back
// to the last daily close.
func (c *YahooClient) SpotPrice(ctx context.Context, ticker string) (float64, error) {
	q := url.Values{}
	q.Set("range", "5d")
	q.Set("interval", "1d")

	res, err := c.chart(ctx, ticker, q)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if p := float64(res.Meta.RegularMarketPrice); p > 0 {
		return p, nil
	}
	if bars := toBars(*res); len(bars) > 0 {
		return bars[len(bars)-1].Close, nil
	}
	return 0, nil
}

func (c *YahooClient) chart(ctx context.Context, ticker string, q url.Values) (*chartResult, error) {
	var resp chartResponse
	if err := c.getJSON(ctx, "chart", "/v8/finance/chart/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Chart.Result[0], nil
}

// Options implements Provider. Each selected expiration is a separate
// request; expirations that fail are skipped.
func (c *YahooClient) Options(ctx context.Context, ticker string, maxDTE int) (*market.Chain, error) {
	first, err := c.optionPage(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}

	now := c.now()
	chain := &market.Chain{
		Ticker: ticker,
		Spot:   float64(first.Quote.RegularMarketPrice),
	}

	for _, exp := range selectExpiries(first.ExpirationDates, now, maxDTE, c.maxExpirations) {
		page, ok := findPage(first.Options, exp)
		if !ok {
			res, err := c.optionPage(ctx, ticker, exp)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				c.logger.Warn("skipping expiration",
					zap.String("ticker", ticker),
					zap.Int64("expiration", exp),
					zap.Error(err),
				)
				continue
			}
			if page, ok = findPage(res.Options, exp); !ok {
				continue
			}
		}
		chain.Calls = append(chain.Calls, toRecords(page.Calls, market.Call, exp, now)...)
		chain.Puts = append(chain.Puts, toRecords(page.Puts, market.Put, exp, now)...)
	}

	if chain.Empty() {
		return nil, ErrNotFound
	}
	return chain, nil
}

func findPage(pages []optionPage, exp int64) (optionPage, bool) {
	for _, p := range pages {
		if p.ExpirationDate == exp {
			return p, true
		}
	}
	return optionPage{}, false
}

func (c *YahooClient) optionPage(ctx context.Context, ticker string, expiration int64) (*optionResult, error) {
	q := url.Values{}
	if expiration > 0 {
		q.Set("date", strconv.FormatInt(expiration, 10))
	}

	var resp optionsResponse
	if err := c.getJSON(ctx, "options", "/v7/finance/options/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, err
	}
	if resp.OptionChain.Error != nil || len(resp.OptionChain.Result) == 0 {
		return nil, ErrNotFound
	}
	return &resp.OptionChain.Result[0], nil
}

func (c *YahooClient) getJSON(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		result := "error"
		switch {
		case errors.Is(err, ErrNotFound):
			result = "not_found"
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			result = "breaker_open"
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		c.metrics.ProviderRequest(endpoint, result)
		return err
	}
	c.metrics.ProviderRequest(endpoint, "ok")

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

// fetch performs a GET with retries on transport errors, 429 and 5xx.
func (c *YahooClient) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	c.logger.Debug("requesting", zap.String("url", reqURL))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // Exponential backoff
			c.logger.Debug("retrying request", zap.Int("attempt", attempt), zap.Duration("delay", delay))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		// Read body before closing for error messages
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, ErrNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = ErrRateLimited
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
