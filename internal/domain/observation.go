package domain

import "time"

// Observation is a single (timestamp, price, volume) sample for a market.
// Observations are immutable once recorded.
type Observation struct {
	MarketID  string
	Timestamp time.Time
	Price     float64 // last traded price, in (0,1)
	Volume    float64 // traded volume for the sampling interval, >= 0
}

// ValidPrice reports whether a prediction-market price is usable. Prices at
// or outside the (0,1) open interval carry no odds information.
func ValidPrice(p float64) bool {
	return p > 0 && p < 1
}
