package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MOMBOT_* environment variable overrides, and
// fills remaining strategy thresholds from the selected preset. The returned
// Config has NOT been validated; the caller should invoke Config.Validate()
// after Load. An empty path skips the file and uses defaults plus env only.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.ApplyPreset(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides reads well-known MOMBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Trading ──
	setFloat64(&cfg.Trading.InitialBankroll, "MOMBOT_TRADING_INITIAL_BANKROLL")
	setDuration(&cfg.Trading.PollInterval, "MOMBOT_TRADING_POLL_INTERVAL")
	setInt(&cfg.Trading.TopMarkets, "MOMBOT_TRADING_TOP_MARKETS")
	setFloat64(&cfg.Trading.MinimumTrade, "MOMBOT_TRADING_MINIMUM_TRADE")
	setDuration(&cfg.Trading.FetchTimeout, "MOMBOT_TRADING_FETCH_TIMEOUT")
	setInt(&cfg.Trading.FetchConcurrency, "MOMBOT_TRADING_FETCH_CONCURRENCY")
	setInt(&cfg.Trading.WindowCapacity, "MOMBOT_TRADING_WINDOW_CAPACITY")

	// ── Strategy ──
	setStr(&cfg.Strategy.Preset, "MOMBOT_STRATEGY_PRESET")
	setInt(&cfg.Strategy.MomentumPeriod, "MOMBOT_STRATEGY_MOMENTUM_PERIOD")
	setFloat64(&cfg.Strategy.MomentumThreshold, "MOMBOT_STRATEGY_MOMENTUM_THRESHOLD")
	setInt(&cfg.Strategy.VolumeWindow, "MOMBOT_STRATEGY_VOLUME_WINDOW")
	setFloat64(&cfg.Strategy.VolumeThreshold, "MOMBOT_STRATEGY_VOLUME_THRESHOLD")
	setFloat64(&cfg.Strategy.ConfidenceThreshold, "MOMBOT_STRATEGY_CONFIDENCE_THRESHOLD")
	setFloat64(&cfg.Strategy.KellyFraction, "MOMBOT_STRATEGY_KELLY_FRACTION")
	setFloat64(&cfg.Strategy.MaxPositionPct, "MOMBOT_STRATEGY_MAX_POSITION_PCT")
	setBool(&cfg.Strategy.ExitsEnabled, "MOMBOT_STRATEGY_EXITS_ENABLED")
	setFloat64(&cfg.Strategy.TakeProfit, "MOMBOT_STRATEGY_TAKE_PROFIT")
	setFloat64(&cfg.Strategy.StopLoss, "MOMBOT_STRATEGY_STOP_LOSS")

	// ── Risk ──
	setFloat64(&cfg.Risk.MaxDailyLossPct, "MOMBOT_RISK_MAX_DAILY_LOSS_PCT")
	setFloat64(&cfg.Risk.MaxDrawdownPct, "MOMBOT_RISK_MAX_DRAWDOWN_PCT")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "MOMBOT_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "MOMBOT_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "MOMBOT_POLYMARKET_WS_HOST")
	setBool(&cfg.Polymarket.WsFeed, "MOMBOT_POLYMARKET_WS_FEED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MOMBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MOMBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MOMBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MOMBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MOMBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MOMBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MOMBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MOMBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MOMBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MOMBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MOMBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MOMBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MOMBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MOMBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MOMBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MOMBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MOMBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MOMBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "MOMBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MOMBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MOMBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MOMBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MOMBOT_S3_FORCE_PATH_STYLE")
	setInt(&cfg.S3.RetentionDays, "MOMBOT_S3_RETENTION_DAYS")

	// ── Top-level ──
	setStr(&cfg.Mode, "MOMBOT_MODE")
	setStr(&cfg.LogLevel, "MOMBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
