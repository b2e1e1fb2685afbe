package domain

import "context"

// MarketDataProvider is the external market data collaborator. Any call may
// fail or time out; the engine treats a failure as "no data this cycle" for
// the affected market, never as a fatal error.
type MarketDataProvider interface {
	// ListActiveMarkets returns up to limit active markets, most liquid first.
	ListActiveMarkets(ctx context.Context, limit int) ([]Market, error)

	// LastPrice returns the last traded price for an outcome token. It
	// returns ErrNotFound when the market has no trade history yet.
	LastPrice(ctx context.Context, tokenID string) (float64, error)

	// OrderBook returns the top of book for an outcome token.
	OrderBook(ctx context.Context, tokenID string) (BookTop, error)
}
