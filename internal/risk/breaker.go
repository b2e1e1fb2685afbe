// Package risk implements the capital-preservation circuit breaker.
package risk

import (
	"log/slog"
	"sync"
)

// Config holds the breach thresholds.
type Config struct {
	MaxDailyLossPct float64 // e.g. 0.05 for 5%
	MaxDrawdownPct  float64 // e.g. 0.20 for 20%
}

// Breaker tracks daily loss and drawdown from peak equity and latches
// trading off when either limit is breached. A breach is a one-way gate for
// new entries: observation and accounting continue, and only an explicit
// Reset re-enables trading.
type Breaker struct {
	cfg    Config
	logger *slog.Logger

	mu             sync.Mutex
	tradingEnabled bool
	peakBankroll   float64
	dailyStart     *float64
}

// NewBreaker creates a Breaker with trading enabled.
func NewBreaker(cfg Config, logger *slog.Logger) *Breaker {
	return &Breaker{
		cfg:            cfg,
		logger:         logger.With(slog.String("component", "circuit_breaker")),
		tradingEnabled: true,
	}
}

// Check updates the breaker with the current bankroll and reports whether
// new entries are allowed. Once tripped it keeps returning false on every
// call, regardless of recovery, until Reset.
func (b *Breaker) Check(current float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.tradingEnabled {
		return false
	}

	if b.dailyStart == nil {
		start := current
		b.dailyStart = &start
	}
	if current > b.peakBankroll {
		b.peakBankroll = current
	}

	if *b.dailyStart > 0 {
		dailyLoss := (*b.dailyStart - current) / *b.dailyStart
		if dailyLoss > b.cfg.MaxDailyLossPct {
			b.tradingEnabled = false
			b.logger.Error("circuit breaker tripped: daily loss limit",
				slog.Float64("daily_loss_pct", dailyLoss*100),
				slog.Float64("limit_pct", b.cfg.MaxDailyLossPct*100),
			)
			return false
		}
	}

	if b.peakBankroll > 0 {
		drawdown := (b.peakBankroll - current) / b.peakBankroll
		if drawdown > b.cfg.MaxDrawdownPct {
			b.tradingEnabled = false
			b.logger.Error("circuit breaker tripped: drawdown limit",
				slog.Float64("drawdown_pct", drawdown*100),
				slog.Float64("limit_pct", b.cfg.MaxDrawdownPct*100),
			)
			return false
		}
	}

	return true
}

// TradingEnabled reports the gate state without updating any tracking.
func (b *Breaker) TradingEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tradingEnabled
}

// ResetDaily clears the daily-loss baseline; the next Check re-seeds it.
// Called at the trading-day boundary.
func (b *Breaker) ResetDaily() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dailyStart = nil
}

// Reset re-enables trading after a breach. This is an explicit operator
// action, never invoked by the engine itself.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tradingEnabled = true
	b.dailyStart = nil
	b.peakBankroll = 0
	b.logger.Warn("circuit breaker manually reset, trading re-enabled")
}
