package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from a JSON number or numeric string. Gamma volume
// fields switch between the two shapes depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID           string    `json:"id"`
	Question     string    `json:"question"`
	Slug         string    `json:"slug"`
	ConditionID  string    `json:"conditionId"`
	Active       flexBool  `json:"active"` // API may send bool or "true"/"false" string
	Closed       flexBool  `json:"closed"`
	Volume24hr   flexFloat `json:"volume24hr"`
	Volume       flexFloat `json:"volume"`
	ClobTokenIDs string    `json:"clobTokenIds"` // JSON-encoded: e.g. "[\"123\",\"456\"]"
	UpdatedAt    string    `json:"updatedAt"`
}

// marketList decodes both list shapes the Gamma API serves: a bare JSON
// array and an envelope with a "data" field.
type marketList []APIMarket

func (l *marketList) UnmarshalJSON(data []byte) error {
	var arr []APIMarket
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var env struct {
		Data []APIMarket `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*l = env.Data
	return nil
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:          m.ID,
		Question:    m.Question,
		Slug:        m.Slug,
		ConditionID: m.ConditionID,
	}

	// Prefer the 24h figure; some endpoints only carry lifetime volume.
	dm.Volume24h = float64(m.Volume24hr)
	if dm.Volume24h == 0 {
		dm.Volume24h = float64(m.Volume)
	}

	if bool(m.Closed) || !bool(m.Active) {
		dm.Status = domain.MarketStatusClosed
	} else {
		dm.Status = domain.MarketStatusActive
	}

	// clobTokenIds is a JSON array encoded as a string; index 0 is Yes.
	if m.ClobTokenIDs != "" {
		var ids []string
		if err := json.Unmarshal([]byte(m.ClobTokenIDs), &ids); err == nil {
			for i, id := range ids {
				if i >= 2 {
					break
				}
				dm.TokenIDs[i] = id
			}
		}
	}

	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		dm.UpdatedAt = t
	}

	return dm
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APILastTrade is the response of the CLOB /last-trade-price endpoint.
type APILastTrade struct {
	Price string `json:"price"`
	Side  string `json:"side"`
}

// APIBook is the response of the CLOB /book endpoint.
type APIBook struct {
	AssetID string          `json:"asset_id"`
	Bids    []APIPriceLevel `json:"bids"`
	Asks    []APIPriceLevel `json:"asks"`
}

// APIPriceLevel is a single bid or ask level in the CLOB book response.
type APIPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToBookTop reduces a full book to its best bid and ask.
func (b *APIBook) ToBookTop() domain.BookTop {
	var top domain.BookTop
	for _, lvl := range b.Bids {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		if p > top.BestBid {
			top.BestBid = p
		}
	}
	for _, lvl := range b.Asks {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		if p > 0 && (top.BestAsk == 0 || p < top.BestAsk) {
			top.BestAsk = p
		}
	}
	return top
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSCommand is the JSON payload sent to the WebSocket to subscribe or
// unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}

// WSPriceMessage represents a last-trade-price frame from the market
// channel.
type WSPriceMessage struct {
	AssetID   string `json:"asset_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// PriceUpdate is the normalized form of a WebSocket price frame.
type PriceUpdate struct {
	TokenID   string
	Price     float64
	Timestamp time.Time
}

// ToPriceUpdate converts a WSPriceMessage to a PriceUpdate.
func (p *WSPriceMessage) ToPriceUpdate() PriceUpdate {
	u := PriceUpdate{TokenID: p.AssetID}
	u.Price, _ = strconv.ParseFloat(p.Price, 64)

	if ts, err := strconv.ParseInt(p.Timestamp, 10, 64); err == nil {
		// Timestamps arrive in epoch milliseconds.
		u.Timestamp = time.UnixMilli(ts)
	} else {
		u.Timestamp = time.Now()
	}
	return u
}
