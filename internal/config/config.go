// Package config defines the top-level configuration for the momentum bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MOMBOT_* environment variables.
type Config struct {
	Trading    TradingConfig    `toml:"trading"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Risk       RiskConfig       `toml:"risk"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// TradingConfig holds the paper-trading loop parameters.
type TradingConfig struct {
	InitialBankroll  float64  `toml:"initial_bankroll"`
	PollInterval     duration `toml:"poll_interval"`
	TopMarkets       int      `toml:"top_markets"`
	MinimumTrade     float64  `toml:"minimum_trade"`
	FetchTimeout     duration `toml:"fetch_timeout"`
	FetchConcurrency int      `toml:"fetch_concurrency"`
	WindowCapacity   int      `toml:"window_capacity"`
}

// StrategyConfig holds signal-generation and sizing parameters. Preset
// selects a documented threshold set ("standard" or "sensitive"); explicit
// fields set in the TOML file override the preset values.
type StrategyConfig struct {
	Preset              string  `toml:"preset"`
	MomentumPeriod      int     `toml:"momentum_period"`
	MomentumThreshold   float64 `toml:"momentum_threshold"`
	VolumeWindow        int     `toml:"volume_window"`
	VolumeThreshold     float64 `toml:"volume_threshold"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	KellyFraction       float64 `toml:"kelly_fraction"`
	MaxPositionPct      float64 `toml:"max_position_pct"`
	ExitsEnabled        bool    `toml:"exits_enabled"`
	TakeProfit          float64 `toml:"take_profit"`
	StopLoss            float64 `toml:"stop_loss"`
}

// RiskConfig holds the circuit-breaker limits.
type RiskConfig struct {
	MaxDailyLossPct float64 `toml:"max_daily_loss_pct"`
	MaxDrawdownPct  float64 `toml:"max_drawdown_pct"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	ClobHost  string `toml:"clob_host"`
	GammaHost string `toml:"gamma_host"`
	WsHost    string `toml:"ws_host"`
	WsFeed    bool   `toml:"ws_feed"`
}

// PostgresConfig holds PostgreSQL connection parameters. Persistence is
// enabled when either DSN or Host is set.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a database connection is configured.
func (c PostgresConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

// RedisConfig holds Redis connection parameters. The cache and event bus
// are enabled when Addr is set.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Enabled reports whether Redis is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// S3Config holds S3-compatible object storage parameters for trade-log
// archival. Archival is enabled when Bucket is set and Postgres is enabled.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	RetentionDays  int    `toml:"retention_days"`
}

// Enabled reports whether archival storage is configured.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "60s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "60s" or "5m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the standard preset and
// reasonable operational defaults.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			InitialBankroll:  1000.0,
			PollInterval:     duration{60 * time.Second},
			TopMarkets:       20,
			MinimumTrade:     1.0,
			FetchTimeout:     duration{10 * time.Second},
			FetchConcurrency: 5,
			WindowCapacity:   100,
		},
		Strategy: StrategyConfig{
			Preset:              "standard",
			KellyFraction:       0.5,
			MaxPositionPct:      0.10,
			ConfidenceThreshold: 0.55,
			ExitsEnabled:        true,
			TakeProfit:          0.10,
			StopLoss:            0.05,
		},
		Risk: RiskConfig{
			MaxDailyLossPct: 0.05,
			MaxDrawdownPct:  0.20,
		},
		Polymarket: PolymarketConfig{
			ClobHost:  "https://clob.polymarket.com",
			GammaHost: "https://gamma-api.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com",
			WsFeed:    false,
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "momentumbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:        "us-east-1",
			RetentionDays: 90,
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// presets maps preset names to threshold sets observed in practice. The
// "standard" set trades rarely on strong anomalies; "sensitive" reacts to
// weaker ones.
var presets = map[string]StrategyConfig{
	"standard": {
		MomentumPeriod:    3,
		MomentumThreshold: 0.02,
		VolumeWindow:      20,
		VolumeThreshold:   2.0,
	},
	"sensitive": {
		MomentumPeriod:    3,
		MomentumThreshold: 0.01,
		VolumeWindow:      10,
		VolumeThreshold:   1.0,
	},
}

// PresetNames returns the valid strategy preset names.
func PresetNames() []string {
	return []string{"standard", "sensitive"}
}

// ApplyPreset fills the zero-valued threshold fields of the strategy config
// from the selected preset. Explicitly configured fields win.
func (c *Config) ApplyPreset() error {
	name := strings.ToLower(c.Strategy.Preset)
	if name == "" {
		name = "standard"
	}
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown strategy preset %q (valid: %s)", c.Strategy.Preset, strings.Join(PresetNames(), ", "))
	}
	s := &c.Strategy
	if s.MomentumPeriod == 0 {
		s.MomentumPeriod = p.MomentumPeriod
	}
	if s.MomentumThreshold == 0 {
		s.MomentumThreshold = p.MomentumThreshold
	}
	if s.VolumeWindow == 0 {
		s.VolumeWindow = p.VolumeWindow
	}
	if s.VolumeThreshold == 0 {
		s.VolumeThreshold = p.VolumeThreshold
	}
	return nil
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found. ApplyPreset must
// run before Validate.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading
	if c.Trading.InitialBankroll <= 0 {
		errs = append(errs, "trading: initial_bankroll must be > 0")
	}
	if c.Trading.PollInterval.Duration <= 0 {
		errs = append(errs, "trading: poll_interval must be > 0")
	}
	if c.Trading.TopMarkets < 1 {
		errs = append(errs, "trading: top_markets must be >= 1")
	}
	if c.Trading.MinimumTrade <= 0 {
		errs = append(errs, "trading: minimum_trade must be > 0")
	}
	if c.Trading.FetchTimeout.Duration <= 0 {
		errs = append(errs, "trading: fetch_timeout must be > 0")
	}
	if c.Trading.FetchConcurrency < 1 {
		errs = append(errs, "trading: fetch_concurrency must be >= 1")
	}
	if c.Trading.WindowCapacity < 1 {
		errs = append(errs, "trading: window_capacity must be >= 1")
	}

	// Strategy
	if c.Trading.WindowCapacity > 0 && c.Strategy.MomentumPeriod >= c.Trading.WindowCapacity {
		errs = append(errs, "strategy: momentum_period must be smaller than trading.window_capacity")
	}
	if c.Strategy.MomentumPeriod < 1 {
		errs = append(errs, "strategy: momentum_period must be >= 1")
	}
	if c.Strategy.MomentumThreshold <= 0 {
		errs = append(errs, "strategy: momentum_threshold must be > 0")
	}
	if c.Strategy.VolumeWindow < 10 {
		errs = append(errs, "strategy: volume_window must be >= 10")
	}
	if c.Trading.WindowCapacity > 0 && c.Strategy.VolumeWindow > c.Trading.WindowCapacity {
		errs = append(errs, "strategy: volume_window must not exceed trading.window_capacity")
	}
	if c.Strategy.VolumeThreshold <= 0 {
		errs = append(errs, "strategy: volume_threshold must be > 0")
	}
	if c.Strategy.ConfidenceThreshold < 0.5 || c.Strategy.ConfidenceThreshold >= 0.95 {
		errs = append(errs, "strategy: confidence_threshold must be in [0.5, 0.95)")
	}
	if c.Strategy.KellyFraction <= 0 || c.Strategy.KellyFraction > 1 {
		errs = append(errs, "strategy: kelly_fraction must be in (0, 1]")
	}
	if c.Strategy.MaxPositionPct <= 0 || c.Strategy.MaxPositionPct > 1 {
		errs = append(errs, "strategy: max_position_pct must be in (0, 1]")
	}
	if c.Strategy.ExitsEnabled {
		if c.Strategy.TakeProfit <= 0 {
			errs = append(errs, "strategy: take_profit must be > 0 when exits are enabled")
		}
		if c.Strategy.StopLoss <= 0 {
			errs = append(errs, "strategy: stop_loss must be > 0 when exits are enabled")
		}
	}

	// Risk
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct >= 1 {
		errs = append(errs, "risk: max_daily_loss_pct must be in (0, 1)")
	}
	if c.Risk.MaxDrawdownPct <= 0 || c.Risk.MaxDrawdownPct >= 1 {
		errs = append(errs, "risk: max_drawdown_pct must be in (0, 1)")
	}

	// Polymarket endpoints
	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.WsFeed && c.Polymarket.WsHost == "" {
		errs = append(errs, "polymarket: ws_host must not be empty when ws_feed is enabled")
	}

	// Postgres
	if c.Postgres.Enabled() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled() && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Enabled() {
		if !c.Postgres.Enabled() {
			errs = append(errs, "s3: archival requires postgres to be configured")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
