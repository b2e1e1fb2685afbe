package strategy

import "github.com/redlabelintel/momentumbot/internal/domain"

// KellyConfig holds the sizing parameters.
type KellyConfig struct {
	// Fraction scales the full-Kelly stake down for safety (0.5 = half-Kelly).
	Fraction float64

	// MaxPositionPct caps any single stake as a fraction of bankroll.
	MaxPositionPct float64
}

// Kelly sizes positions with the fractional Kelly criterion under a
// per-position bankroll cap.
type Kelly struct {
	cfg KellyConfig
}

// NewKelly creates a sizer with the given fraction and cap.
func NewKelly(cfg KellyConfig) *Kelly {
	return &Kelly{cfg: cfg}
}

// Stake returns the dollar stake for win probability p at decimal odds
// against the current bankroll. A non-positive edge (p*odds <= 1-p) always
// returns 0: the engine never bets against expectancy.
func (k *Kelly) Stake(p, odds, bankroll float64) float64 {
	if odds <= 0 {
		return 0
	}
	kellyPct := (p*odds - (1 - p)) / odds

	adjusted := kellyPct * k.cfg.Fraction
	if adjusted <= 0 {
		return 0
	}
	if adjusted > k.cfg.MaxPositionPct {
		adjusted = k.cfg.MaxPositionPct
	}
	return bankroll * adjusted
}

// OddsFromPrice derives decimal odds from a market price. Cheap contracts
// (q < 0.5) pay (1-q)/q on a win; expensive ones are quoted from the
// opposite side. Prices outside (0,1) are invalid input and yield
// ErrInvalidPrice; callers treat that as no-trade.
func OddsFromPrice(q float64) (float64, error) {
	if !domain.ValidPrice(q) {
		return 0, domain.ErrInvalidPrice
	}
	if q < 0.5 {
		return (1 - q) / q, nil
	}
	return q / (1 - q), nil
}
