package polymarket

import (
	"context"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

// Provider combines the Gamma and CLOB clients behind the market data
// interface the engine consumes.
type Provider struct {
	gamma *GammaClient
	clob  *ClobClient
}

var _ domain.MarketDataProvider = (*Provider)(nil)

// NewProvider creates a Provider from Gamma and CLOB API roots.
func NewProvider(gammaHost, clobHost string) *Provider {
	return &Provider{
		gamma: NewGammaClient(gammaHost),
		clob:  NewClobClient(clobHost),
	}
}

// ListActiveMarkets implements domain.MarketDataProvider.
func (p *Provider) ListActiveMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	return p.gamma.ListActiveMarkets(ctx, limit)
}

// LastPrice implements domain.MarketDataProvider.
func (p *Provider) LastPrice(ctx context.Context, tokenID string) (float64, error) {
	return p.clob.LastPrice(ctx, tokenID)
}

// OrderBook implements domain.MarketDataProvider.
func (p *Provider) OrderBook(ctx context.Context, tokenID string) (domain.BookTop, error) {
	return p.clob.OrderBook(ctx, tokenID)
}
