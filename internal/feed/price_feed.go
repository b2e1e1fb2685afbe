// Package feed streams live prices from the Polymarket WebSocket into the
// price cache so exit checks have a quote for markets that fell out of the
// polled active set.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redlabelintel/momentumbot/internal/domain"
	"github.com/redlabelintel/momentumbot/internal/platform/polymarket"
)

// PriceFeed connects to the Polymarket CLOB WebSocket, subscribes to the
// tracked outcome tokens, and writes every price frame into the price
// cache. It reconnects on disconnect.
type PriceFeed struct {
	wsURL  string
	cache  domain.PriceCache
	logger *slog.Logger

	mu      sync.Mutex
	tracked map[string]struct{}
	pending []string
	client  *polymarket.WSClient

	closeOnce sync.Once
	done      chan struct{}
}

// NewPriceFeed creates a feed writing into the given cache.
func NewPriceFeed(wsURL string, cache domain.PriceCache, logger *slog.Logger) *PriceFeed {
	return &PriceFeed{
		wsURL:   wsURL,
		cache:   cache,
		logger:  logger.With(slog.String("component", "price_feed")),
		tracked: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
}

// Track subscribes to price frames for the given outcome tokens. Tokens
// already tracked are skipped; new ones are subscribed immediately when the
// feed is connected, otherwise on the next (re)connect.
func (f *PriceFeed) Track(ctx context.Context, tokenIDs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var fresh []string
	for _, id := range tokenIDs {
		if id == "" {
			continue
		}
		if _, ok := f.tracked[id]; ok {
			continue
		}
		f.tracked[id] = struct{}{}
		fresh = append(fresh, id)
	}
	if len(fresh) == 0 {
		return
	}

	if f.client == nil {
		f.pending = append(f.pending, fresh...)
		return
	}
	if err := f.client.Subscribe(ctx, fresh); err != nil {
		f.logger.Warn("subscribe failed, queueing for reconnect", slog.String("error", err.Error()))
		f.pending = append(f.pending, fresh...)
	}
}

// Run connects and streams prices until ctx is cancelled, reconnecting with
// a fixed delay on disconnect.
func (f *PriceFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			f.logger.Warn("ws disconnected, reconnecting", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *PriceFeed) runConnection(ctx context.Context) error {
	client := polymarket.NewWSClient(f.wsURL)
	defer client.Close()

	client.OnPrice(func(u polymarket.PriceUpdate) {
		if err := f.cache.SetPrice(context.Background(), u.TokenID, u.Price, u.Timestamp); err != nil {
			f.logger.Warn("cache write failed",
				slog.String("token_id", u.TokenID),
				slog.String("error", err.Error()),
			)
		}
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.client = client
	subs := make([]string, 0, len(f.tracked))
	for id := range f.tracked {
		subs = append(subs, id)
	}
	f.pending = nil
	f.mu.Unlock()

	if len(subs) > 0 {
		if err := client.Subscribe(ctx, subs); err != nil {
			f.mu.Lock()
			f.client = nil
			f.mu.Unlock()
			return err
		}
		f.logger.Info("ws subscribed", slog.Int("tokens", len(subs)))
	}

	// Hold the connection until shutdown, whether that arrives as context
	// cancellation or an explicit Close.
	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case <-f.done:
	}

	f.mu.Lock()
	f.client = nil
	f.mu.Unlock()
	return runErr
}

// Close stops the feed.
func (f *PriceFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
