package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

// ClobClient is the REST client for the read-only endpoints of the
// Polymarket CLOB (Central Limit Order Book) API. Paper trading never
// submits orders, so the client carries no signing or auth machinery.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// LastPrice returns the most recent trade price for an outcome token. It
// returns domain.ErrNotFound when the token has never traded.
func (c *ClobClient) LastPrice(ctx context.Context, tokenID string) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doGet(ctx, "/last-trade-price?"+params.Encode())
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: last price %s: %w", tokenID, err)
	}

	var trade APILastTrade
	if err := json.Unmarshal(body, &trade); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode last trade: %w", err)
	}
	if trade.Price == "" {
		return 0, fmt.Errorf("polymarket/clob: last price %s: %w", tokenID, domain.ErrNotFound)
	}

	price, err := strconv.ParseFloat(trade.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: parse last trade price %q: %w", trade.Price, err)
	}

	return price, nil
}

// OrderBook returns the top of the book for an outcome token.
func (c *ClobClient) OrderBook(ctx context.Context, tokenID string) (domain.BookTop, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doGet(ctx, "/book?"+params.Encode())
	if err != nil {
		return domain.BookTop{}, fmt.Errorf("polymarket/clob: order book %s: %w", tokenID, err)
	}

	var book APIBook
	if err := json.Unmarshal(body, &book); err != nil {
		return domain.BookTop{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}

	return book.ToBookTop(), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the CLOB API.
func (c *ClobClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
