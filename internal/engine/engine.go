// Package engine runs the polling trade loop: observe the most active
// markets, evaluate entry signals, size stakes, manage exits, and report
// performance each cycle.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/redlabelintel/momentumbot/internal/domain"
	"github.com/redlabelintel/momentumbot/internal/ledger"
	"github.com/redlabelintel/momentumbot/internal/risk"
	"github.com/redlabelintel/momentumbot/internal/strategy"
	"github.com/redlabelintel/momentumbot/internal/window"
)

const (
	metricsChannel = "mombot.metrics"
	metricsStream  = "mombot:metrics"
	tradeChannel   = "mombot.trades"
	tradeStream    = "mombot:trades"
)

// Config holds the loop parameters.
type Config struct {
	PollInterval     time.Duration
	TopMarkets       int
	FetchTimeout     time.Duration
	FetchConcurrency int

	// EntriesEnabled is false in monitor mode: the full loop runs but no
	// positions are opened.
	EntriesEnabled bool

	// Exit management. Gains and losses are measured as realized pnl over
	// committed stake.
	ExitsEnabled bool
	TakeProfit   float64
	StopLoss     float64

	// RetentionDays prunes trade history older than this to cold storage
	// once per day. Zero disables archival even when an Archiver is wired.
	RetentionDays int
}

// PriceTracker registers outcome tokens with the live price feed.
type PriceTracker interface {
	Track(ctx context.Context, tokenIDs []string)
}

// Deps bundles the engine's collaborators. Provider, Windows, Signals,
// Sizer, Breaker, and Ledger are required; the rest are optional and skipped
// when nil.
type Deps struct {
	Provider domain.MarketDataProvider
	Windows  *window.Store
	Signals  *strategy.Momentum
	Sizer    *strategy.Kelly
	Breaker  *risk.Breaker
	Ledger   *ledger.Ledger

	PriceCache domain.PriceCache
	Bus        domain.EventBus
	Trades     domain.TradeStore
	Equity     domain.EquityStore
	Archiver   domain.Archiver
	Tracker    PriceTracker
}

// Engine is the trading loop.
type Engine struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	day time.Time // UTC date of the current trading day

	// yesTokens remembers each market's Yes token across cycles so exit
	// checks can consult the price cache after a market leaves the active
	// set. Written only by the cycle goroutine.
	yesTokens map[string]string
}

// New creates an Engine.
func New(cfg Config, deps Deps, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		deps:      deps,
		logger:    logger.With(slog.String("component", "engine")),
		yesTokens: make(map[string]string),
	}
}

// Run executes cycles at the configured interval until ctx is cancelled.
// The in-flight cycle settles before Run returns; per-fetch timeouts bound
// how long that takes.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine started",
		slog.Duration("poll_interval", e.cfg.PollInterval),
		slog.Int("top_markets", e.cfg.TopMarkets),
		slog.Bool("entries_enabled", e.cfg.EntriesEnabled),
	)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := e.RunCycle(ctx); err != nil {
			// A failed cycle never kills the loop; the next tick retries.
			e.logger.Error("cycle failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle executes one full observe/decide/act/report cycle.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.rollTradingDay(ctx)

	// The breaker sees the bankroll before anything else happens this
	// cycle. A tripped breaker stops entries only: observation, exits, and
	// reporting continue so state stays current for an operator reset.
	entriesAllowed := e.deps.Breaker.Check(e.deps.Ledger.Bankroll()) && e.cfg.EntriesEnabled

	markets, err := e.deps.Provider.ListActiveMarkets(ctx, e.cfg.TopMarkets)
	if err != nil {
		return err
	}

	tokens := make([]string, 0, len(markets))
	for _, m := range markets {
		tokens = append(tokens, m.YesToken())
		e.yesTokens[m.ID] = m.YesToken()
	}
	if e.deps.Tracker != nil {
		e.deps.Tracker.Track(ctx, tokens)
	}

	prices := e.observeMarkets(ctx, markets, entriesAllowed)

	if e.cfg.ExitsEnabled {
		e.checkExits(ctx, prices)
	}

	e.report(ctx)
	return nil
}

// observeMarkets fans out per-market work: fetch the latest price, append
// the observation, and (when allowed) evaluate an entry. Each market is
// confined to one goroutine; a failed market never blocks the rest. The
// returned map holds the Yes price of every market fetched this cycle.
func (e *Engine) observeMarkets(ctx context.Context, markets []domain.Market, entriesAllowed bool) map[string]float64 {
	var mu sync.Mutex
	prices := make(map[string]float64, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.FetchConcurrency)

	for _, m := range markets {
		m := m
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, e.cfg.FetchTimeout)
			defer cancel()

			price, err := e.deps.Provider.LastPrice(fetchCtx, m.YesToken())
			if err != nil {
				e.logger.Warn("price fetch failed",
					slog.String("market_id", m.ID),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if !domain.ValidPrice(price) {
				e.logger.Warn("unusable price",
					slog.String("market_id", m.ID),
					slog.Float64("price", price),
				)
				return nil
			}

			now := time.Now().UTC()
			e.deps.Windows.Append(domain.Observation{
				MarketID:  m.ID,
				Timestamp: now,
				Price:     price,
				Volume:    m.Volume24h,
			})

			mu.Lock()
			prices[m.ID] = price
			mu.Unlock()

			if e.deps.PriceCache != nil {
				if err := e.deps.PriceCache.SetPrice(fetchCtx, m.YesToken(), price, now); err != nil {
					e.logger.Warn("price cache write failed",
						slog.String("market_id", m.ID),
						slog.String("error", err.Error()),
					)
				}
			}

			if entriesAllowed {
				e.tryEnter(fetchCtx, m, price)
			}
			return nil
		})
	}
	_ = g.Wait()

	return prices
}

// tryEnter evaluates the market's window and opens a position when a signal
// fires and the sizer returns a usable stake.
func (e *Engine) tryEnter(ctx context.Context, m domain.Market, yesPrice float64) {
	obs := e.deps.Windows.Recent(m.ID, e.deps.Windows.Capacity())

	sig, ok := e.deps.Signals.Evaluate(m.ID, obs)
	if !ok {
		return
	}

	// The stake is sized against the cost of the contract actually bought:
	// Yes at the quoted price, No at its complement.
	cost := yesPrice
	if sig.PositionSide() == domain.SideNo {
		cost = 1 - yesPrice
	}
	odds, err := strategy.OddsFromPrice(cost)
	if err != nil {
		return
	}

	stake := e.deps.Sizer.Stake(sig.Confidence, odds, e.deps.Ledger.Bankroll())
	if stake <= 0 {
		return
	}

	rec, err := e.deps.Ledger.OpenPosition(m.ID, sig.PositionSide(), stake, yesPrice)
	if err != nil {
		if errors.Is(err, domain.ErrPositionExists) {
			return
		}
		e.logger.Warn("entry rejected",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	e.logger.Info("entry signal taken",
		slog.String("market_id", m.ID),
		slog.String("side", string(sig.Side)),
		slog.Float64("confidence", sig.Confidence),
		slog.Float64("expected_value", sig.ExpectedValue),
		slog.Float64("stake", stake),
	)
	e.persistTrade(ctx, rec)
}

// checkExits closes open positions that hit take-profit or stop-loss.
// Prices come from this cycle's fetch, falling back to the price cache for
// positions whose market dropped out of the active set.
func (e *Engine) checkExits(ctx context.Context, cyclePrices map[string]float64) {
	for _, pos := range e.deps.Ledger.OpenPositions() {
		price, ok := cyclePrices[pos.MarketID]
		if !ok {
			cached, cok := e.cachedYesPrice(ctx, pos.MarketID)
			if !cok {
				continue
			}
			price = cached
		}
		if !domain.ValidPrice(price) {
			continue
		}

		// Return on committed stake.
		gain := pos.PnL(price) / pos.Size

		var reason string
		switch {
		case gain >= e.cfg.TakeProfit:
			reason = "take_profit"
		case gain <= -e.cfg.StopLoss:
			reason = "stop_loss"
		default:
			continue
		}

		rec, err := e.deps.Ledger.ClosePosition(pos.MarketID, price)
		if err != nil {
			e.logger.Warn("exit failed",
				slog.String("market_id", pos.MarketID),
				slog.String("error", err.Error()),
			)
			continue
		}

		e.logger.Info("position exited",
			slog.String("market_id", pos.MarketID),
			slog.String("reason", reason),
			slog.Float64("pnl", rec.PnL),
		)
		e.persistTrade(ctx, rec)
	}
}

// cachedYesPrice looks up the latest cached Yes price for a market. Cache
// entries are keyed by outcome token, remembered per market from the last
// listing that included it.
func (e *Engine) cachedYesPrice(ctx context.Context, marketID string) (float64, bool) {
	if e.deps.PriceCache == nil {
		return 0, false
	}
	token, ok := e.yesTokens[marketID]
	if !ok {
		return 0, false
	}
	price, _, err := e.deps.PriceCache.GetPrice(ctx, token)
	if err != nil {
		return 0, false
	}
	return price, true
}

// report logs the metrics snapshot and publishes it for external consumers.
func (e *Engine) report(ctx context.Context) {
	m := e.deps.Ledger.Metrics()
	e.logger.Info("cycle complete",
		slog.Float64("bankroll", m.Bankroll),
		slog.Int("total_trades", m.TotalTrades),
		slog.Int("open_positions", m.OpenPositions),
		slog.Float64("win_rate", m.WinRate),
		slog.Float64("return_pct", m.ReturnPct),
		slog.Bool("trading_enabled", e.deps.Breaker.TradingEnabled()),
	)

	if e.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Timestamp      time.Time `json:"timestamp"`
		Bankroll       float64   `json:"bankroll"`
		TotalTrades    int       `json:"total_trades"`
		OpenPositions  int       `json:"open_positions"`
		WinRate        float64   `json:"win_rate"`
		ReturnPct      float64   `json:"return_pct"`
		TradingEnabled bool      `json:"trading_enabled"`
	}{
		Timestamp:      time.Now().UTC(),
		Bankroll:       m.Bankroll,
		TotalTrades:    m.TotalTrades,
		OpenPositions:  m.OpenPositions,
		WinRate:        m.WinRate,
		ReturnPct:      m.ReturnPct,
		TradingEnabled: e.deps.Breaker.TradingEnabled(),
	})
	if err != nil {
		return
	}
	if err := e.deps.Bus.Publish(ctx, metricsChannel, payload); err != nil {
		e.logger.Warn("metrics publish failed", slog.String("error", err.Error()))
	}
	if err := e.deps.Bus.StreamAppend(ctx, metricsStream, payload); err != nil {
		e.logger.Warn("metrics stream append failed", slog.String("error", err.Error()))
	}
}

// persistTrade writes a trade record and the latest equity sample behind
// the in-memory ledger. Persistence failures are logged and never fatal:
// the ledger stays the source of truth for the running process.
func (e *Engine) persistTrade(ctx context.Context, rec domain.TradeRecord) {
	if e.deps.Trades != nil {
		if err := e.deps.Trades.Insert(ctx, rec); err != nil {
			e.logger.Warn("trade persist failed",
				slog.String("trade_id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if e.deps.Equity != nil {
		pt := domain.EquityPoint{Timestamp: rec.Timestamp, Bankroll: e.deps.Ledger.Bankroll()}
		if err := e.deps.Equity.Insert(ctx, pt); err != nil {
			e.logger.Warn("equity persist failed", slog.String("error", err.Error()))
		}
	}
	if e.deps.Bus != nil {
		if payload, err := json.Marshal(rec); err == nil {
			if err := e.deps.Bus.Publish(ctx, tradeChannel, payload); err != nil {
				e.logger.Warn("trade publish failed", slog.String("error", err.Error()))
			}
			if err := e.deps.Bus.StreamAppend(ctx, tradeStream, payload); err != nil {
				e.logger.Warn("trade stream append failed", slog.String("error", err.Error()))
			}
		}
	}
}

// rollTradingDay re-seeds the breaker's daily baseline at the UTC date
// boundary and kicks off the daily archival pass.
func (e *Engine) rollTradingDay(ctx context.Context) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if e.day.IsZero() {
		e.day = today
		return
	}
	if !today.After(e.day) {
		return
	}
	e.day = today

	e.deps.Breaker.ResetDaily()
	e.logger.Info("trading day rolled", slog.Time("day", today))

	if e.deps.Archiver != nil && e.cfg.RetentionDays > 0 {
		cutoff := today.AddDate(0, 0, -e.cfg.RetentionDays)
		archiveCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		n, err := e.deps.Archiver.ArchiveTrades(archiveCtx, cutoff)
		if err != nil {
			e.logger.Error("trade archival failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			e.logger.Info("trade archival complete", slog.Int64("archived", n))
		}
	}
}
