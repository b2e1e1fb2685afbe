// Package ledger holds the paper-trading portfolio state: bankroll, open
// positions, the append-only trade log, and the equity curve. It is the one
// piece of mutable state shared across markets, so every mutation runs under
// a single mutex; in particular the bankroll-sufficiency check and deduction
// on open are one atomic step.
package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

// Config holds ledger parameters.
type Config struct {
	InitialBankroll float64
	MinimumTrade    float64
}

// Ledger is the in-memory portfolio. All methods are safe for concurrent
// use.
type Ledger struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	bankroll  float64
	positions map[string]domain.Position
	trades    []domain.TradeRecord
	equity    []domain.EquityPoint
	wins      int
	closed    int
}

// New creates a Ledger seeded with the initial bankroll.
func New(cfg Config, logger *slog.Logger) *Ledger {
	return &Ledger{
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "ledger")),
		bankroll:  cfg.InitialBankroll,
		positions: make(map[string]domain.Position),
	}
}

// Bankroll returns the current free bankroll.
func (l *Ledger) Bankroll() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bankroll
}

// Position returns the open position for a market, if any.
func (l *Ledger) Position(marketID string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[marketID]
	return pos, ok
}

// OpenPositions returns a snapshot of all open positions.
func (l *Ledger) OpenPositions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, pos)
	}
	return out
}

// OpenPosition atomically checks and deducts the stake, records the
// position, and appends a trade record and equity snapshot. It rejects
// (without mutating anything) stakes exceeding the bankroll, stakes below
// the minimum trade size, and markets that already have an open position.
// The returned record is the appended trade log entry.
func (l *Ledger) OpenPosition(marketID string, side domain.Side, size, price float64) (domain.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.positions[marketID]; exists {
		return domain.TradeRecord{}, fmt.Errorf("ledger: open %s: %w", marketID, domain.ErrPositionExists)
	}
	if size < l.cfg.MinimumTrade {
		return domain.TradeRecord{}, fmt.Errorf("ledger: open %s: stake %.2f: %w", marketID, size, domain.ErrBelowMinimum)
	}
	if size > l.bankroll {
		return domain.TradeRecord{}, fmt.Errorf("ledger: open %s: stake %.2f > bankroll %.2f: %w",
			marketID, size, l.bankroll, domain.ErrInsufficientFunds)
	}

	now := time.Now().UTC()
	l.bankroll -= size
	l.positions[marketID] = domain.Position{
		MarketID:   marketID,
		Side:       side,
		Size:       size,
		EntryPrice: price,
		EntryTime:  now,
	}

	rec := domain.TradeRecord{
		ID:        uuid.NewString(),
		Timestamp: now,
		MarketID:  marketID,
		Action:    domain.TradeActionOpen,
		Side:      side,
		Size:      size,
		Price:     price,
	}
	l.trades = append(l.trades, rec)
	l.equity = append(l.equity, domain.EquityPoint{Timestamp: now, Bankroll: l.bankroll})

	l.logger.Info("position opened",
		slog.String("market_id", marketID),
		slog.String("side", string(side)),
		slog.Float64("size", size),
		slog.Float64("price", price),
		slog.Float64("bankroll", l.bankroll),
	)
	return rec, nil
}

// ClosePosition realizes pnl at exitPrice, returns the stake plus pnl to
// the bankroll, removes the position, and appends a trade record and equity
// snapshot. It returns ErrNoPosition when the market has nothing open.
func (l *Ledger) ClosePosition(marketID string, exitPrice float64) (domain.TradeRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[marketID]
	if !ok {
		return domain.TradeRecord{}, fmt.Errorf("ledger: close %s: %w", marketID, domain.ErrNoPosition)
	}

	now := time.Now().UTC()
	pnl := pos.PnL(exitPrice)
	l.bankroll += pos.Size + pnl
	delete(l.positions, marketID)

	l.closed++
	if pnl > 0 {
		l.wins++
	}

	rec := domain.TradeRecord{
		ID:        uuid.NewString(),
		Timestamp: now,
		MarketID:  marketID,
		Action:    domain.TradeActionClose,
		Side:      pos.Side,
		Size:      pos.Size,
		Price:     exitPrice,
		PnL:       pnl,
	}
	l.trades = append(l.trades, rec)
	l.equity = append(l.equity, domain.EquityPoint{Timestamp: now, Bankroll: l.bankroll})

	l.logger.Info("position closed",
		slog.String("market_id", marketID),
		slog.String("side", string(pos.Side)),
		slog.Float64("size", pos.Size),
		slog.Float64("exit_price", exitPrice),
		slog.Float64("pnl", pnl),
		slog.Float64("bankroll", l.bankroll),
	)
	return rec, nil
}

// Trades returns a copy of the full trade log, oldest first.
func (l *Ledger) Trades() []domain.TradeRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TradeRecord, len(l.trades))
	copy(out, l.trades)
	return out
}

// EquityCurve returns a copy of all equity snapshots, oldest first.
func (l *Ledger) EquityCurve() []domain.EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.EquityPoint, len(l.equity))
	copy(out, l.equity)
	return out
}

// Metrics returns the performance snapshot for the reporting surface.
func (l *Ledger) Metrics() domain.Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := domain.Metrics{
		Bankroll:      l.bankroll,
		TotalTrades:   len(l.trades),
		OpenPositions: len(l.positions),
	}
	if l.closed > 0 {
		m.WinRate = float64(l.wins) / float64(l.closed)
	}
	if l.cfg.InitialBankroll > 0 {
		m.ReturnPct = (l.bankroll - l.cfg.InitialBankroll) / l.cfg.InitialBankroll * 100
	}
	return m
}
