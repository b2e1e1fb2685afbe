package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive MarketStatus = "active"
	MarketStatusClosed MarketStatus = "closed"
)

// Market is the normalized view of a prediction market as returned by the
// market data provider. The provider boundary normalizes whatever shape the
// upstream API sends into this type; nothing past it branches on response
// shape.
type Market struct {
	ID          string
	Question    string
	Slug        string
	ConditionID string
	TokenIDs    [2]string // [Yes, No] outcome token IDs
	Volume24h   float64
	Status      MarketStatus
	UpdatedAt   time.Time
}

// YesToken returns the token ID of the Yes outcome, the side the engine
// prices and trades against.
func (m Market) YesToken() string {
	return m.TokenIDs[0]
}

// BookTop is the best bid and ask of a market's order book.
type BookTop struct {
	BestBid float64
	BestAsk float64
}

// Mid returns the order-book midpoint, or 0 when either side is empty.
func (b BookTop) Mid() float64 {
	if b.BestBid <= 0 || b.BestAsk <= 0 {
		return 0
	}
	return (b.BestBid + b.BestAsk) / 2
}
