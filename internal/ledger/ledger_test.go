package ledger

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

func newTestLedger(bankroll float64) *Ledger {
	return New(
		Config{InitialBankroll: bankroll, MinimumTrade: 1.0},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestOpenPositionDeductsBankroll(t *testing.T) {
	l := newTestLedger(1000)

	rec, err := l.OpenPosition("m1", domain.SideYes, 100, 0.45)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.TradeActionOpen, rec.Action)
	assert.InDelta(t, 900, l.Bankroll(), 1e-9)

	pos, ok := l.Position("m1")
	require.True(t, ok)
	assert.Equal(t, domain.SideYes, pos.Side)
	assert.InDelta(t, 100, pos.Size, 1e-9)
	assert.InDelta(t, 0.45, pos.EntryPrice, 1e-9)
}

func TestDuplicateOpenRejectedWithoutDeduction(t *testing.T) {
	l := newTestLedger(1000)

	_, err := l.OpenPosition("m1", domain.SideYes, 100, 0.45)
	require.NoError(t, err)

	_, err = l.OpenPosition("m1", domain.SideNo, 200, 0.50)
	assert.ErrorIs(t, err, domain.ErrPositionExists)

	// Bankroll deducted exactly once, original position untouched.
	assert.InDelta(t, 900, l.Bankroll(), 1e-9)
	pos, _ := l.Position("m1")
	assert.Equal(t, domain.SideYes, pos.Side)
	assert.Len(t, l.Trades(), 1)
}

func TestInsufficientFundsRejected(t *testing.T) {
	l := newTestLedger(50)

	_, err := l.OpenPosition("m1", domain.SideYes, 100, 0.45)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.InDelta(t, 50, l.Bankroll(), 1e-9)
	assert.Empty(t, l.Trades())
}

func TestBelowMinimumRejected(t *testing.T) {
	l := newTestLedger(1000)

	_, err := l.OpenPosition("m1", domain.SideYes, 0.5, 0.45)
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)
	assert.InDelta(t, 1000, l.Bankroll(), 1e-9)
}

func TestRoundTripAtSamePriceIsFlat(t *testing.T) {
	l := newTestLedger(1000)

	_, err := l.OpenPosition("m1", domain.SideYes, 100, 0.45)
	require.NoError(t, err)

	rec, err := l.ClosePosition("m1", 0.45)
	require.NoError(t, err)
	assert.Zero(t, rec.PnL)
	assert.InDelta(t, 1000, l.Bankroll(), 1e-9)

	_, ok := l.Position("m1")
	assert.False(t, ok)
}

func TestClosePnLBySide(t *testing.T) {
	l := newTestLedger(1000)

	_, err := l.OpenPosition("yes-mkt", domain.SideYes, 100, 0.40)
	require.NoError(t, err)
	rec, err := l.ClosePosition("yes-mkt", 0.50)
	require.NoError(t, err)
	assert.InDelta(t, 10, rec.PnL, 1e-9) // 100 * (0.50 - 0.40)

	_, err = l.OpenPosition("no-mkt", domain.SideNo, 100, 0.40)
	require.NoError(t, err)
	rec, err = l.ClosePosition("no-mkt", 0.50)
	require.NoError(t, err)
	assert.InDelta(t, -10, rec.PnL, 1e-9) // 100 * (0.40 - 0.50)
}

func TestCloseWithoutPosition(t *testing.T) {
	l := newTestLedger(1000)
	_, err := l.ClosePosition("m1", 0.5)
	assert.ErrorIs(t, err, domain.ErrNoPosition)
}

func TestMetrics(t *testing.T) {
	l := newTestLedger(1000)

	_, _ = l.OpenPosition("m1", domain.SideYes, 100, 0.40)
	_, _ = l.ClosePosition("m1", 0.50) // +10
	_, _ = l.OpenPosition("m2", domain.SideYes, 100, 0.40)
	_, _ = l.ClosePosition("m2", 0.35) // -5
	_, _ = l.OpenPosition("m3", domain.SideNo, 50, 0.60)

	m := l.Metrics()
	assert.InDelta(t, 955, m.Bankroll, 1e-9) // 1000 +10 -5 -50
	assert.Equal(t, 5, m.TotalTrades)
	assert.Equal(t, 1, m.OpenPositions)
	assert.InDelta(t, 0.5, m.WinRate, 1e-9)
	assert.InDelta(t, -4.5, m.ReturnPct, 1e-9)
}

func TestEquityCurveAppendsPerMutation(t *testing.T) {
	l := newTestLedger(1000)

	_, _ = l.OpenPosition("m1", domain.SideYes, 100, 0.40)
	_, _ = l.ClosePosition("m1", 0.40)

	curve := l.EquityCurve()
	require.Len(t, curve, 2)
	assert.InDelta(t, 900, curve[0].Bankroll, 1e-9)
	assert.InDelta(t, 1000, curve[1].Bankroll, 1e-9)
}

func TestConcurrentOpensNeverOverspend(t *testing.T) {
	l := newTestLedger(100)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Each goroutine tries to stake 30 on its own market; at most
			// three can succeed from a bankroll of 100.
			_, _ = l.OpenPosition(string(rune('a'+i)), domain.SideYes, 30, 0.5)
		}(i)
	}
	wg.Wait()

	assert.GreaterOrEqual(t, l.Bankroll(), 0.0)
	assert.LessOrEqual(t, len(l.OpenPositions()), 3)
}
