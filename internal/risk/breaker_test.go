package risk

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(cfg Config) *Breaker {
	return NewBreaker(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCheckPassesWithinLimits(t *testing.T) {
	b := newTestBreaker(Config{MaxDailyLossPct: 0.05, MaxDrawdownPct: 0.20})

	assert.True(t, b.Check(1000))
	assert.True(t, b.Check(990)) // -1% on the day
	assert.True(t, b.TradingEnabled())
}

func TestDailyLossTrips(t *testing.T) {
	b := newTestBreaker(Config{MaxDailyLossPct: 0.05, MaxDrawdownPct: 0.20})

	require.True(t, b.Check(1000))
	assert.True(t, b.Check(950))   // exactly 5%: not a breach
	assert.False(t, b.Check(940))  // 6% > 5%
	assert.False(t, b.TradingEnabled())
}

func TestDrawdownTrips(t *testing.T) {
	b := newTestBreaker(Config{MaxDailyLossPct: 0.50, MaxDrawdownPct: 0.20})

	require.True(t, b.Check(1000))
	require.True(t, b.Check(1500)) // new peak
	assert.False(t, b.Check(1100)) // 26.7% off peak
}

func TestBreachLatchesUntilReset(t *testing.T) {
	b := newTestBreaker(Config{MaxDailyLossPct: 0.05, MaxDrawdownPct: 0.20})

	require.True(t, b.Check(1000))
	require.False(t, b.Check(900))

	// Full recovery does not re-enable trading.
	assert.False(t, b.Check(1000))
	assert.False(t, b.Check(2000))
	assert.False(t, b.TradingEnabled())

	b.Reset()
	assert.True(t, b.TradingEnabled())
	assert.True(t, b.Check(2000))
}

func TestResetDailyReseedsBaseline(t *testing.T) {
	b := newTestBreaker(Config{MaxDailyLossPct: 0.05, MaxDrawdownPct: 0.90})

	require.True(t, b.Check(1000))
	require.True(t, b.Check(960)) // -4%, within the day

	// New trading day: the baseline re-seeds at 960, so another -4% is fine.
	b.ResetDaily()
	assert.True(t, b.Check(960))
	assert.True(t, b.Check(925))
	assert.False(t, b.Check(900)) // -6.25% from 960
}

func TestPeakIsMonotonic(t *testing.T) {
	b := newTestBreaker(Config{MaxDailyLossPct: 0.90, MaxDrawdownPct: 0.20})

	require.True(t, b.Check(1000))
	require.True(t, b.Check(900))  // 10% drawdown
	require.True(t, b.Check(850))  // 15%
	assert.False(t, b.Check(790))  // 21% from the 1000 peak
}
