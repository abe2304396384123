package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Provider ProviderConfig `mapstructure:"provider"`
	Universe UniverseConfig `mapstructure:"universe"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            string `mapstructure:"port"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec"`
}

type ProviderConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	TimeoutSec      int           `mapstructure:"timeout_sec"`
	RetryCount      int           `mapstructure:"retry_count"`
	RetryDelay      int           `mapstructure:"retry_delay_sec"`
	RatePerSecond   int           `mapstructure:"rate_per_second"`
	MaxExpirations  int           `mapstructure:"max_expirations"`
	FallbackEnabled bool          `mapstructure:"fallback_enabled"`
	Breaker         BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxRequests uint32 `mapstructure:"max_requests"`
	IntervalSec int    `mapstructure:"interval_sec"`
	TimeoutSec  int    `mapstructure:"timeout_sec"`
}

type UniverseConfig struct {
	URL             string `mapstructure:"url"`
	FallbackEnabled bool   `mapstructure:"fallback_enabled"`
	TimeoutSec      int    `mapstructure:"timeout_sec"`
}

type EngineConfig struct {
	RiskFreeRate  float64 `mapstructure:"risk_free_rate"`
	StrikeBand    float64 `mapstructure:"strike_band"`
	MaxStrikes    int     `mapstructure:"max_strikes"`
	FlipBand      float64 `mapstructure:"flip_band"`
	FlipPoints    int     `mapstructure:"flip_points"`
	ATMBand       float64 `mapstructure:"atm_band"`
	DefaultMaxDTE int     `mapstructure:"default_max_dte"`
}

type ScanConfig struct {
	Workers           int `mapstructure:"workers"`
	BatchSize         int `mapstructure:"batch_size"`
	TickerTimeoutSec  int `mapstructure:"ticker_timeout_sec"`
	MaxTickers        int `mapstructure:"max_tickers"`
	DefaultNumTickers int `mapstructure:"default_num_tickers"`
	DefaultLookback   int `mapstructure:"default_lookback"`
	RetentionMin      int `mapstructure:"retention_min"`
}

type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server"`
	Topic    string `mapstructure:"topic"`
	Priority string `mapstructure:"priority"`
	Tags     string `mapstructure:"tags"`
	Token    string `mapstructure:"token"`
}

// ScheduleConfig drives the daily scan daemon.
type ScheduleConfig struct {
	Hour         int    `mapstructure:"hour"`
	Minute       int    `mapstructure:"minute"`
	Timezone     string `mapstructure:"timezone"`
	RunOnStartup bool   `mapstructure:"run_on_startup"`
	Sector       string `mapstructure:"sector"`
	NumTickers   int    `mapstructure:"num_tickers"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

// DefaultUniverseURL is the public S&P 500 constituents list.
const DefaultUniverseURL = "https://raw.githubusercontent.com/datasets/s-and-p-500-companies/main/data/constituents.csv"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.read_timeout_sec", 30)
	v.SetDefault("server.write_timeout_sec", 30)

	v.SetDefault("provider.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.timeout_sec", 15)
	v.SetDefault("provider.retry_count", 2)
	v.SetDefault("provider.retry_delay_sec", 1)
	v.SetDefault("provider.rate_per_second", 5)
	v.SetDefault("provider.max_expirations", 4)
	v.SetDefault("provider.fallback_enabled", true)
	v.SetDefault("provider.breaker.max_requests", 3)
	v.SetDefault("provider.breaker.interval_sec", 60)
	v.SetDefault("provider.breaker.timeout_sec", 30)

	v.SetDefault("universe.url", DefaultUniverseURL)
	v.SetDefault("universe.fallback_enabled", true)
	v.SetDefault("universe.timeout_sec", 15)

	v.SetDefault("engine.risk_free_rate", 0.045)
	v.SetDefault("engine.strike_band", 0.4)
	v.SetDefault("engine.max_strikes", 60)
	v.SetDefault("engine.flip_band", 0.3)
	v.SetDefault("engine.flip_points", 40)
	v.SetDefault("engine.atm_band", 0.10)
	v.SetDefault("engine.default_max_dte", 45)

	v.SetDefault("scan.workers", 5)
	v.SetDefault("scan.batch_size", 5)
	v.SetDefault("scan.ticker_timeout_sec", 30)
	v.SetDefault("scan.max_tickers", 500)
	v.SetDefault("scan.default_num_tickers", 50)
	v.SetDefault("scan.default_lookback", 30)
	v.SetDefault("scan.retention_min", 60)

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.topic", "")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("notify.token", "")

	v.SetDefault("schedule.hour", 16)
	v.SetDefault("schedule.minute", 15)
	v.SetDefault("schedule.timezone", "America/New_York")
	v.SetDefault("schedule.run_on_startup", false)
	v.SetDefault("schedule.sector", "")
	v.SetDefault("schedule.num_tickers", 0)

	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable support
	v.SetEnvPrefix("QUANTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// PORT is what most container platforms set
	_ = v.BindEnv("server.port", "QUANTDESK_SERVER_PORT", "PORT")
	_ = v.BindEnv("notify.token", "QUANTDESK_NOTIFY_TOKEN", "NTFY_TOKEN")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
