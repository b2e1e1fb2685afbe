package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

type memCache struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newMemCache() *memCache {
	return &memCache{prices: make(map[string]float64)}
}

func (c *memCache) SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[tokenID] = price
	return nil
}

func (c *memCache) GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.prices[tokenID]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, time.Now(), nil
}

// wsServer upgrades connections and, after the first client message, writes
// each queued frame. It then drains the connection so protocol-level pings
// keep working.
func wsServer(t *testing.T, frames ...[]byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if len(frames) > 0 {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			for _, frame := range frames {
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					return
				}
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsAddr(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCloseStopsRunWhileConnected(t *testing.T) {
	srv := wsServer(t)
	defer srv.Close()

	f := NewPriceFeed(wsAddr(srv), newMemCache(), discardLogger())
	done := make(chan error, 1)
	go func() { done <- f.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.client != nil
	}, 5*time.Second, 10*time.Millisecond, "feed never connected")

	f.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestTrackedPriceFrameReachesCache(t *testing.T) {
	frame, err := json.Marshal(map[string]string{
		"event_type": "last_trade_price",
		"asset_id":   "tok1",
		"price":      "0.52",
		"timestamp":  "1756598400000",
	})
	require.NoError(t, err)

	srv := wsServer(t, frame)
	defer srv.Close()

	cache := newMemCache()
	f := NewPriceFeed(wsAddr(srv), cache, discardLogger())
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.Track(ctx, []string{"tok1"})
	go func() { _ = f.Run(ctx) }()

	require.Eventually(t, func() bool {
		p, _, err := cache.GetPrice(ctx, "tok1")
		return err == nil && p == 0.52
	}, 5*time.Second, 10*time.Millisecond, "price frame never reached the cache")
}
