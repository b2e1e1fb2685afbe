// Package strategy implements the momentum signal generator and the
// fractional-Kelly position sizer.
package strategy

import (
	"math"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

// MomentumConfig holds the tunable thresholds for signal generation.
type MomentumConfig struct {
	// MomentumPeriod is the lookback, in observations, for the price
	// momentum calculation. A window needs MomentumPeriod+1 observations
	// before any signal can be produced.
	MomentumPeriod int

	// MomentumThreshold is the minimum absolute fractional price change
	// over the lookback (e.g. 0.02 for 2%). Changes at the threshold are
	// not signals.
	MomentumThreshold float64

	// VolumeWindow is the trailing sample count for the volume z-score.
	VolumeWindow int

	// VolumeThreshold is the minimum volume z-score. Values at the
	// threshold are not signals.
	VolumeThreshold float64

	// ConfidenceThreshold is the minimum confidence a signal must exceed
	// to be emitted.
	ConfidenceThreshold float64
}

// Momentum derives directional signals from a market's observation window:
// a volume anomaly (z-score above threshold) combined with price momentum
// beyond threshold in either direction.
type Momentum struct {
	cfg MomentumConfig
}

// NewMomentum creates a generator with the given thresholds.
func NewMomentum(cfg MomentumConfig) *Momentum {
	return &Momentum{cfg: cfg}
}

// Evaluate inspects a market's window, oldest observation first, and returns
// a signal when the entry conditions hold. The boolean is false for every
// no-signal case: short window, flat or sub-threshold momentum, no volume
// anomaly, or confidence at or below the configured floor.
func (m *Momentum) Evaluate(marketID string, obs []domain.Observation) (domain.Signal, bool) {
	period := m.cfg.MomentumPeriod
	if len(obs) < period+1 {
		return domain.Signal{}, false
	}

	last := obs[len(obs)-1].Price
	ref := obs[len(obs)-1-period].Price
	if ref == 0 {
		return domain.Signal{}, false
	}
	momentum := (last - ref) / ref

	zscore := m.volumeZScore(obs)
	if zscore <= m.cfg.VolumeThreshold {
		return domain.Signal{}, false
	}

	var side domain.SignalSide
	switch {
	case momentum > m.cfg.MomentumThreshold:
		side = domain.SignalBuyYes
	case momentum < -m.cfg.MomentumThreshold:
		side = domain.SignalBuyNo
	default:
		return domain.Signal{}, false
	}

	// Heuristic confidence: base 0.55 plus anomaly and momentum strength,
	// capped at 0.95. Not a calibrated win probability.
	confidence := math.Min(0.55+zscore/10+math.Abs(momentum)*10, 0.95)
	if confidence <= m.cfg.ConfidenceThreshold {
		return domain.Signal{}, false
	}

	return domain.Signal{
		MarketID:      marketID,
		Side:          side,
		Confidence:    confidence,
		ExpectedValue: math.Abs(momentum) * confidence,
	}, true
}

// volumeZScore computes the z-score of the latest volume against the
// trailing VolumeWindow samples. With fewer samples than the window, or a
// zero standard deviation, the score is 0 (no anomaly evidence).
func (m *Momentum) volumeZScore(obs []domain.Observation) float64 {
	w := m.cfg.VolumeWindow
	if len(obs) < w {
		return 0
	}

	tail := obs[len(obs)-w:]
	var sum float64
	for _, o := range tail {
		sum += o.Volume
	}
	mean := sum / float64(w)

	var variance float64
	for _, o := range tail {
		d := o.Volume - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(w))
	if std == 0 {
		return 0
	}

	return (tail[len(tail)-1].Volume - mean) / std
}
