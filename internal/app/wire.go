package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/redlabelintel/momentumbot/internal/blob/s3"
	"github.com/redlabelintel/momentumbot/internal/cache/redis"
	"github.com/redlabelintel/momentumbot/internal/config"
	"github.com/redlabelintel/momentumbot/internal/domain"
	"github.com/redlabelintel/momentumbot/internal/feed"
	"github.com/redlabelintel/momentumbot/internal/platform/polymarket"
	"github.com/redlabelintel/momentumbot/internal/store/postgres"
)

// Dependencies bundles every external-facing dependency the engine needs.
// Optional pieces (persistence, cache, bus, archival, feed) stay nil when
// their backend is not configured; the engine skips them.
type Dependencies struct {
	Provider domain.MarketDataProvider

	// Persistence (nil without postgres)
	TradeStore  domain.TradeStore
	EquityStore domain.EquityStore

	// Cache and events (nil without redis)
	PriceCache domain.PriceCache
	EventBus   domain.EventBus

	// Archival (nil without s3 + postgres)
	Archiver domain.Archiver

	// Live prices (nil unless the ws feed is enabled together with redis)
	PriceFeed *feed.PriceFeed
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Provider: polymarket.NewProvider(cfg.Polymarket.GammaHost, cfg.Polymarket.ClobHost),
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.EquityStore = postgres.NewEquityStore(pool)
	}

	// --- Redis ---
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.EventBus = redis.NewEventBus(redisClient)
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled() {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		// Archival needs the trade store's time-ranged queries; config
		// validation guarantees postgres is configured alongside s3.
		if trades, ok := deps.TradeStore.(s3blob.TradeArchiveStore); ok {
			deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), trades, logger)
		}
	}

	// --- Live price feed ---
	if cfg.Polymarket.WsFeed && deps.PriceCache != nil {
		pf := feed.NewPriceFeed(cfg.Polymarket.WsHost+"/ws/market", deps.PriceCache, logger)
		closers = append(closers, pf.Close)
		deps.PriceFeed = pf
	}

	return deps, cleanup, nil
}
