package config

import (
	"fmt"
	"strings"
	"time"
)

// FieldError is one rejected configuration value.
type FieldError struct {
	Key    string
	Value  any
	Reason string
}

// ValidationErrors collects all validation errors
type ValidationErrors struct {
	Fields []FieldError
}

// HasErrors returns true if any validation errors exist
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationErrors) add(key string, value any, reason string) {
	e.Fields = append(e.Fields, FieldError{Key: key, Value: value, Reason: reason})
}

// Error formats all validation errors into a clear message
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, f := range e.Fields {
		sb.WriteString(fmt.Sprintf("  - %s=%v: %s\n", f.Key, f.Value, f.Reason))
	}
	return sb.String()
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validPriorities = map[string]bool{
	"min": true, "low": true, "default": true, "high": true, "urgent": true,
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	positive := func(key string, v int) {
		if v < 1 {
			errs.add(key, v, "must be >= 1")
		}
	}

	if c.Server.Port == "" {
		errs.add("server.port", c.Server.Port, "required")
	}

	if c.Provider.BaseURL == "" {
		errs.add("provider.base_url", c.Provider.BaseURL, "required")
	}
	positive("provider.timeout_sec", c.Provider.TimeoutSec)
	positive("provider.rate_per_second", c.Provider.RatePerSecond)
	positive("provider.max_expirations", c.Provider.MaxExpirations)
	if c.Provider.RetryCount < 0 {
		errs.add("provider.retry_count", c.Provider.RetryCount, "must be >= 0")
	}

	if c.Engine.RiskFreeRate < 0 || c.Engine.RiskFreeRate > 1 {
		errs.add("engine.risk_free_rate", c.Engine.RiskFreeRate, "must be within [0, 1]")
	}
	if c.Engine.StrikeBand <= 0 || c.Engine.StrikeBand >= 1 {
		errs.add("engine.strike_band", c.Engine.StrikeBand, "must be within (0, 1)")
	}
	if c.Engine.FlipBand <= 0 || c.Engine.FlipBand >= 1 {
		errs.add("engine.flip_band", c.Engine.FlipBand, "must be within (0, 1)")
	}
	if c.Engine.ATMBand <= 0 || c.Engine.ATMBand >= 1 {
		errs.add("engine.atm_band", c.Engine.ATMBand, "must be within (0, 1)")
	}
	positive("engine.max_strikes", c.Engine.MaxStrikes)
	if c.Engine.FlipPoints < 2 {
		errs.add("engine.flip_points", c.Engine.FlipPoints, "must be >= 2")
	}
	positive("engine.default_max_dte", c.Engine.DefaultMaxDTE)

	positive("scan.workers", c.Scan.Workers)
	positive("scan.batch_size", c.Scan.BatchSize)
	positive("scan.ticker_timeout_sec", c.Scan.TickerTimeoutSec)
	positive("scan.max_tickers", c.Scan.MaxTickers)
	positive("scan.default_num_tickers", c.Scan.DefaultNumTickers)
	positive("scan.default_lookback", c.Scan.DefaultLookback)
	positive("scan.retention_min", c.Scan.RetentionMin)

	if c.Notify.Enabled {
		if c.Notify.Topic == "" {
			errs.add("notify.topic", c.Notify.Topic, "required when notify.enabled=true")
		}
		if !validPriorities[c.Notify.Priority] {
			errs.add("notify.priority", c.Notify.Priority, "must be one of min, low, default, high, urgent")
		}
	}

	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 {
		errs.add("schedule.hour", c.Schedule.Hour, "must be within [0, 23]")
	}
	if c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		errs.add("schedule.minute", c.Schedule.Minute, "must be within [0, 59]")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs.add("schedule.timezone", c.Schedule.Timezone, "unknown time zone")
	}

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs.add("logging.level", c.Logging.Level, "must be one of debug, info, warn, error")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
