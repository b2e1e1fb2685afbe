package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlabelintel/momentumbot/internal/domain"
	"github.com/redlabelintel/momentumbot/internal/ledger"
	"github.com/redlabelintel/momentumbot/internal/risk"
	"github.com/redlabelintel/momentumbot/internal/strategy"
	"github.com/redlabelintel/momentumbot/internal/window"
)

// fakeProvider serves a fixed market list and per-token prices the test
// mutates between cycles.
type fakeProvider struct {
	mu      sync.Mutex
	markets []domain.Market
	prices  map[string]float64
	failing map[string]bool
}

func (f *fakeProvider) ListActiveMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Market, len(f.markets))
	copy(out, f.markets)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProvider) LastPrice(ctx context.Context, tokenID string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[tokenID] {
		return 0, errors.New("upstream timeout")
	}
	p, ok := f.prices[tokenID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeProvider) OrderBook(ctx context.Context, tokenID string) (domain.BookTop, error) {
	return domain.BookTop{}, domain.ErrNotFound
}

func (f *fakeProvider) set(m domain.Market, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.markets {
		if f.markets[i].ID == m.ID {
			f.markets[i] = m
			f.prices[m.YesToken()] = price
			return
		}
	}
	f.markets = append(f.markets, m)
	f.prices[m.YesToken()] = price
}

// fakeCache is an in-memory stand-in for the redis price cache.
type fakeCache struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newFakeCache() *fakeCache {
	return &fakeCache{prices: make(map[string]float64)}
}

func (c *fakeCache) SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[tokenID] = price
	return nil
}

func (c *fakeCache) GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[tokenID]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, time.Now(), nil
}

type harness struct {
	provider *fakeProvider
	cache    *fakeCache
	windows  *window.Store
	breaker  *risk.Breaker
	book     *ledger.Ledger
	engine   *Engine
}

func market(id, token string, vol float64) domain.Market {
	return domain.Market{
		ID:        id,
		TokenIDs:  [2]string{token, token + "-no"},
		Volume24h: vol,
		Status:    domain.MarketStatusActive,
	}
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider := &fakeProvider{
		prices:  make(map[string]float64),
		failing: make(map[string]bool),
	}
	cache := newFakeCache()
	windows := window.NewStore(50)
	breaker := risk.NewBreaker(risk.Config{MaxDailyLossPct: 0.5, MaxDrawdownPct: 0.9}, logger)
	book := ledger.New(ledger.Config{InitialBankroll: 1000, MinimumTrade: 1}, logger)

	signals := strategy.NewMomentum(strategy.MomentumConfig{
		MomentumPeriod:      3,
		MomentumThreshold:   0.02,
		VolumeWindow:        4,
		VolumeThreshold:     1.0,
		ConfidenceThreshold: 0.55,
	})
	sizer := strategy.NewKelly(strategy.KellyConfig{Fraction: 0.5, MaxPositionPct: 0.10})

	eng := New(cfg, Deps{
		Provider:   provider,
		Windows:    windows,
		Signals:    signals,
		Sizer:      sizer,
		Breaker:    breaker,
		Ledger:     book,
		PriceCache: cache,
	}, logger)

	return &harness{
		provider: provider,
		cache:    cache,
		windows:  windows,
		breaker:  breaker,
		book:     book,
		engine:   eng,
	}
}

func defaultConfig() Config {
	return Config{
		PollInterval:     time.Minute,
		TopMarkets:       5,
		FetchTimeout:     time.Second,
		FetchConcurrency: 3,
		EntriesEnabled:   true,
	}
}

func TestMomentumSpikeOpensCappedPosition(t *testing.T) {
	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	steps := []struct {
		price  float64
		volume float64
	}{
		{0.40, 100},
		{0.41, 100},
		{0.42, 100},
	}
	for _, s := range steps {
		h.provider.set(market("m1", "tok1", s.volume), s.price)
		require.NoError(t, h.engine.RunCycle(ctx))
	}

	// No entry while the window is short of momentum_period+1 samples or
	// the volume is unremarkable.
	assert.Empty(t, h.book.OpenPositions())
	assert.InDelta(t, 1000, h.book.Bankroll(), 1e-9)

	// Fourth cycle: +12.5% momentum on a volume spike. Half-Kelly on a
	// 0.95-confidence signal exceeds the cap, so the stake lands at 10% of
	// bankroll exactly.
	h.provider.set(market("m1", "tok1", 1000), 0.45)
	require.NoError(t, h.engine.RunCycle(ctx))

	pos, ok := h.book.Position("m1")
	require.True(t, ok)
	assert.Equal(t, domain.SideYes, pos.Side)
	assert.InDelta(t, 100, pos.Size, 1e-9)
	assert.InDelta(t, 0.45, pos.EntryPrice, 1e-9)
	assert.InDelta(t, 900, h.book.Bankroll(), 1e-9)

	trades := h.book.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, domain.TradeActionOpen, trades[0].Action)
}

func TestEntryUsesFullConfiguredWindow(t *testing.T) {
	// A volume window wider than the default store capacity still has to see
	// every sample the store was sized for.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := &fakeProvider{
		prices:  make(map[string]float64),
		failing: make(map[string]bool),
	}
	windows := window.NewStore(200)
	breaker := risk.NewBreaker(risk.Config{MaxDailyLossPct: 0.5, MaxDrawdownPct: 0.9}, logger)
	book := ledger.New(ledger.Config{InitialBankroll: 1000, MinimumTrade: 1}, logger)
	signals := strategy.NewMomentum(strategy.MomentumConfig{
		MomentumPeriod:      3,
		MomentumThreshold:   0.02,
		VolumeWindow:        120,
		VolumeThreshold:     2.0,
		ConfidenceThreshold: 0.55,
	})
	sizer := strategy.NewKelly(strategy.KellyConfig{Fraction: 0.5, MaxPositionPct: 0.10})
	eng := New(defaultConfig(), Deps{
		Provider: provider,
		Windows:  windows,
		Signals:  signals,
		Sizer:    sizer,
		Breaker:  breaker,
		Ledger:   book,
	}, logger)

	base := time.Now().UTC().Add(-3 * time.Hour)
	for i := 0; i < 130; i++ {
		windows.Append(domain.Observation{
			MarketID:  "m1",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Price:     0.40,
			Volume:    100,
		})
	}

	// +25% move on a 50x volume spike: far beyond both gates once the full
	// 131-sample window is in view.
	provider.set(market("m1", "tok1", 5000), 0.50)
	require.NoError(t, eng.RunCycle(context.Background()))

	pos, ok := book.Position("m1")
	require.True(t, ok, "expected an entry against the full configured window")
	assert.Equal(t, domain.SideYes, pos.Side)
	assert.InDelta(t, 100, pos.Size, 1e-9)
}

func TestFailingMarketIsolated(t *testing.T) {
	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c", "d", "e"} {
		h.provider.set(market(id, "tok-"+id, 100), 0.40+float64(i)*0.01)
	}
	h.provider.failing["tok-c"] = true

	require.NoError(t, h.engine.RunCycle(ctx))

	for _, id := range []string{"a", "b", "d", "e"} {
		assert.Equal(t, 1, h.windows.Len(id), "market %s", id)
	}
	assert.Zero(t, h.windows.Len("c"))
}

func TestTrippedBreakerBlocksEntriesNotObservation(t *testing.T) {
	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	// Trip the breaker: 60% daily loss against a 50% limit.
	require.True(t, h.breaker.Check(1000))
	require.False(t, h.breaker.Check(400))

	// Window primed so this cycle would otherwise produce an entry.
	base := time.Now().UTC().Add(-time.Hour)
	for i, p := range []float64{0.40, 0.41, 0.42} {
		h.windows.Append(domain.Observation{
			MarketID:  "m1",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Price:     p,
			Volume:    100,
		})
	}
	h.provider.set(market("m1", "tok1", 1000), 0.45)

	require.NoError(t, h.engine.RunCycle(ctx))

	assert.Empty(t, h.book.OpenPositions())
	assert.Equal(t, 4, h.windows.Len("m1"))
}

func TestMonitorModeNeverEnters(t *testing.T) {
	cfg := defaultConfig()
	cfg.EntriesEnabled = false
	h := newHarness(t, cfg)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, p := range []float64{0.40, 0.41, 0.42} {
		h.windows.Append(domain.Observation{
			MarketID: "m1", Timestamp: base.Add(time.Duration(i) * time.Minute),
			Price: p, Volume: 100,
		})
	}
	h.provider.set(market("m1", "tok1", 1000), 0.45)

	require.NoError(t, h.engine.RunCycle(ctx))
	assert.Empty(t, h.book.OpenPositions())
	assert.Equal(t, 4, h.windows.Len("m1"))
}

func TestTakeProfitExit(t *testing.T) {
	cfg := defaultConfig()
	cfg.ExitsEnabled = true
	cfg.TakeProfit = 0.10
	cfg.StopLoss = 0.05
	h := newHarness(t, cfg)
	ctx := context.Background()

	_, err := h.book.OpenPosition("m1", domain.SideYes, 100, 0.40)
	require.NoError(t, err)

	// +5% on stake: neither limit reached.
	h.provider.set(market("m1", "tok1", 100), 0.45)
	require.NoError(t, h.engine.RunCycle(ctx))
	_, open := h.book.Position("m1")
	assert.True(t, open)

	// +10% on stake: take profit.
	h.provider.set(market("m1", "tok1", 100), 0.50)
	require.NoError(t, h.engine.RunCycle(ctx))

	_, open = h.book.Position("m1")
	assert.False(t, open)
	assert.InDelta(t, 1010, h.book.Bankroll(), 1e-9)

	trades := h.book.Trades()
	last := trades[len(trades)-1]
	assert.Equal(t, domain.TradeActionClose, last.Action)
	assert.InDelta(t, 10, last.PnL, 1e-9)
}

func TestStopLossExit(t *testing.T) {
	cfg := defaultConfig()
	cfg.ExitsEnabled = true
	cfg.TakeProfit = 0.10
	cfg.StopLoss = 0.05
	h := newHarness(t, cfg)
	ctx := context.Background()

	_, err := h.book.OpenPosition("m1", domain.SideYes, 100, 0.40)
	require.NoError(t, err)

	// -15% on stake breaches the 5% stop.
	h.provider.set(market("m1", "tok1", 100), 0.34)
	require.NoError(t, h.engine.RunCycle(ctx))

	_, open := h.book.Position("m1")
	assert.False(t, open)
	assert.InDelta(t, 994, h.book.Bankroll(), 1e-9)
}

func TestExitFallsBackToCachedPrice(t *testing.T) {
	cfg := defaultConfig()
	cfg.ExitsEnabled = true
	cfg.TakeProfit = 0.10
	cfg.StopLoss = 0.05
	h := newHarness(t, cfg)
	ctx := context.Background()

	// One cycle with the market listed so the engine learns its Yes token.
	h.provider.set(market("m1", "tok1", 100), 0.40)
	require.NoError(t, h.engine.RunCycle(ctx))

	_, err := h.book.OpenPosition("m1", domain.SideYes, 100, 0.40)
	require.NoError(t, err)

	// Market drops out of the active set; the feed keeps the cache fresh.
	h.provider.mu.Lock()
	h.provider.markets = nil
	h.provider.mu.Unlock()
	require.NoError(t, h.cache.SetPrice(ctx, "tok1", 0.52, time.Now()))

	require.NoError(t, h.engine.RunCycle(ctx))

	_, open := h.book.Position("m1")
	assert.False(t, open)
	assert.InDelta(t, 1012, h.book.Bankroll(), 1e-9)
}

func TestNoDuplicateEntryWhilePositionOpen(t *testing.T) {
	h := newHarness(t, defaultConfig())
	ctx := context.Background()

	steps := []struct {
		price  float64
		volume float64
	}{
		{0.40, 100},
		{0.41, 100},
		{0.42, 100},
		{0.45, 1000},
		{0.48, 2000}, // still anomalous and trending, but position is open
	}
	for _, s := range steps {
		h.provider.set(market("m1", "tok1", s.volume), s.price)
		require.NoError(t, h.engine.RunCycle(ctx))
	}

	assert.Len(t, h.book.OpenPositions(), 1)
	assert.Len(t, h.book.Trades(), 1)
}
