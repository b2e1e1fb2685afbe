package domain

import "time"

// Side is the outcome a position is long.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Position is an open paper position. At most one position exists per
// market at any time.
type Position struct {
	MarketID   string
	Side       Side
	Size       float64 // capital committed, in dollars, > 0
	EntryPrice float64
	EntryTime  time.Time
}

// PnL returns the realized profit or loss of closing the position at
// exitPrice. Yes positions gain when price rises, No positions when it falls.
func (p Position) PnL(exitPrice float64) float64 {
	if p.Side == SideNo {
		return p.Size * (p.EntryPrice - exitPrice)
	}
	return p.Size * (exitPrice - p.EntryPrice)
}

// TradeAction distinguishes entries from exits in the trade log.
type TradeAction string

const (
	TradeActionOpen  TradeAction = "open"
	TradeActionClose TradeAction = "close"
)

// TradeRecord is an append-only trade log entry. Records are never mutated
// or deleted for the lifetime of the engine instance.
type TradeRecord struct {
	ID        string // UUID
	Timestamp time.Time
	MarketID  string
	Action    TradeAction
	Side      Side
	Size      float64
	Price     float64
	PnL       float64 // realized pnl, zero for entries
}

// EquityPoint is one sample of the equity curve, appended after every
// ledger mutation.
type EquityPoint struct {
	Timestamp time.Time
	Bankroll  float64
}

// Metrics is the read-only performance snapshot exposed to the reporting
// surface.
type Metrics struct {
	Bankroll      float64
	TotalTrades   int
	OpenPositions int
	WinRate       float64 // winning closed trades / closed trades
	ReturnPct     float64 // (bankroll - initial) / initial * 100
}
