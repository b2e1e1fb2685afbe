// Package app provides the top-level application lifecycle for the momentum
// bot. It wires dependencies, assembles the engine, and supervises the
// running goroutines.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/redlabelintel/momentumbot/internal/config"
	"github.com/redlabelintel/momentumbot/internal/engine"
	"github.com/redlabelintel/momentumbot/internal/ledger"
	"github.com/redlabelintel/momentumbot/internal/risk"
	"github.com/redlabelintel/momentumbot/internal/strategy"
	"github.com/redlabelintel/momentumbot/internal/window"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the engine and the optional price feed,
// and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("preset", a.cfg.Strategy.Preset),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	eng := a.buildEngine(deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return eng.Run(gctx)
	})
	if deps.PriceFeed != nil {
		g.Go(func() error {
			return deps.PriceFeed.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("app: %w", err)
	}
	return ctx.Err()
}

// buildEngine assembles the core loop from config and wired dependencies.
func (a *App) buildEngine(deps *Dependencies) *engine.Engine {
	windows := window.NewStore(a.cfg.Trading.WindowCapacity)

	signals := strategy.NewMomentum(strategy.MomentumConfig{
		MomentumPeriod:      a.cfg.Strategy.MomentumPeriod,
		MomentumThreshold:   a.cfg.Strategy.MomentumThreshold,
		VolumeWindow:        a.cfg.Strategy.VolumeWindow,
		VolumeThreshold:     a.cfg.Strategy.VolumeThreshold,
		ConfidenceThreshold: a.cfg.Strategy.ConfidenceThreshold,
	})
	sizer := strategy.NewKelly(strategy.KellyConfig{
		Fraction:       a.cfg.Strategy.KellyFraction,
		MaxPositionPct: a.cfg.Strategy.MaxPositionPct,
	})
	breaker := risk.NewBreaker(risk.Config{
		MaxDailyLossPct: a.cfg.Risk.MaxDailyLossPct,
		MaxDrawdownPct:  a.cfg.Risk.MaxDrawdownPct,
	}, a.logger)
	book := ledger.New(ledger.Config{
		InitialBankroll: a.cfg.Trading.InitialBankroll,
		MinimumTrade:    a.cfg.Trading.MinimumTrade,
	}, a.logger)

	engineCfg := engine.Config{
		PollInterval:     a.cfg.Trading.PollInterval.Duration,
		TopMarkets:       a.cfg.Trading.TopMarkets,
		FetchTimeout:     a.cfg.Trading.FetchTimeout.Duration,
		FetchConcurrency: a.cfg.Trading.FetchConcurrency,
		EntriesEnabled:   strings.ToLower(a.cfg.Mode) == "trade",
		ExitsEnabled:     a.cfg.Strategy.ExitsEnabled,
		TakeProfit:       a.cfg.Strategy.TakeProfit,
		StopLoss:         a.cfg.Strategy.StopLoss,
		RetentionDays:    a.cfg.S3.RetentionDays,
	}

	engineDeps := engine.Deps{
		Provider:   deps.Provider,
		Windows:    windows,
		Signals:    signals,
		Sizer:      sizer,
		Breaker:    breaker,
		Ledger:     book,
		PriceCache: deps.PriceCache,
		Bus:        deps.EventBus,
		Trades:     deps.TradeStore,
		Equity:     deps.EquityStore,
	}
	if deps.Archiver != nil {
		engineDeps.Archiver = deps.Archiver
	}
	if deps.PriceFeed != nil {
		engineDeps.Tracker = deps.PriceFeed
	}

	return engine.New(engineCfg, engineDeps, a.logger)
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
