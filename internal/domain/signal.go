package domain

// SignalSide is the direction of a trading signal.
type SignalSide string

const (
	SignalBuyYes SignalSide = "BUY_YES"
	SignalBuyNo  SignalSide = "BUY_NO"
)

// Signal is a directional trading signal derived from one market's
// observation window. Signals are transient: produced and consumed within a
// single engine cycle, never stored.
type Signal struct {
	MarketID      string
	Side          SignalSide
	Confidence    float64 // heuristic win probability, capped at 0.95
	ExpectedValue float64 // |momentum| * confidence
}

// PositionSide converts the signal direction into the side of the position
// it would open.
func (s Signal) PositionSide() Side {
	if s.Side == SignalBuyNo {
		return SideNo
	}
	return SideYes
}
