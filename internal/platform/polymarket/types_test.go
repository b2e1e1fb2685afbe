package polymarket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

func TestMarketListDecodesBareArray(t *testing.T) {
	raw := `[{"id":"1","question":"Will it rain?","active":true,"closed":false}]`

	var list marketList
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "1", list[0].ID)
}

func TestMarketListDecodesEnvelope(t *testing.T) {
	raw := `{"data":[{"id":"1"},{"id":"2"}]}`

	var list marketList
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[1].ID)
}

func TestFlexBoolAcceptsStringAndBool(t *testing.T) {
	var m APIMarket
	require.NoError(t, json.Unmarshal([]byte(`{"active":"true","closed":false}`), &m))
	assert.True(t, bool(m.Active))
	assert.False(t, bool(m.Closed))
}

func TestFlexFloatAcceptsStringAndNumber(t *testing.T) {
	var m APIMarket
	require.NoError(t, json.Unmarshal([]byte(`{"volume24hr":"1234.5","volume":99}`), &m))
	assert.InDelta(t, 1234.5, float64(m.Volume24hr), 1e-9)
	assert.InDelta(t, 99, float64(m.Volume), 1e-9)
}

func TestToDomainMarket(t *testing.T) {
	m := APIMarket{
		ID:           "m1",
		Question:     "Will X happen?",
		Slug:         "will-x-happen",
		ConditionID:  "0xabc",
		Active:       true,
		Closed:       false,
		Volume24hr:   5000,
		ClobTokenIDs: `["yes-token","no-token"]`,
		UpdatedAt:    "2026-08-30T12:00:00Z",
	}

	dm := m.ToDomainMarket()
	assert.Equal(t, "m1", dm.ID)
	assert.Equal(t, domain.MarketStatusActive, dm.Status)
	assert.Equal(t, "yes-token", dm.YesToken())
	assert.Equal(t, "no-token", dm.TokenIDs[1])
	assert.InDelta(t, 5000, dm.Volume24h, 1e-9)
	assert.False(t, dm.UpdatedAt.IsZero())
}

func TestToDomainMarketClosedWins(t *testing.T) {
	m := APIMarket{ID: "m1", Active: true, Closed: true}
	assert.Equal(t, domain.MarketStatusClosed, m.ToDomainMarket().Status)
}

func TestToDomainMarketFallsBackToLifetimeVolume(t *testing.T) {
	m := APIMarket{ID: "m1", Active: true, Volume: 777}
	assert.InDelta(t, 777, m.ToDomainMarket().Volume24h, 1e-9)
}

func TestBookTopPicksBestLevels(t *testing.T) {
	book := APIBook{
		Bids: []APIPriceLevel{{Price: "0.40"}, {Price: "0.44"}, {Price: "0.42"}},
		Asks: []APIPriceLevel{{Price: "0.50"}, {Price: "0.46"}, {Price: "0.48"}},
	}

	top := book.ToBookTop()
	assert.InDelta(t, 0.44, top.BestBid, 1e-9)
	assert.InDelta(t, 0.46, top.BestAsk, 1e-9)
	assert.InDelta(t, 0.45, top.Mid(), 1e-9)
}

func TestBookTopEmptySideHasNoMid(t *testing.T) {
	book := APIBook{Asks: []APIPriceLevel{{Price: "0.46"}}}

	top := book.ToBookTop()
	assert.Zero(t, top.BestBid)
	assert.Zero(t, top.Mid())
}

func TestPriceUpdateParsesMillisTimestamp(t *testing.T) {
	msg := WSPriceMessage{AssetID: "tok", Price: "0.62", Timestamp: "1767225600000"}

	u := msg.ToPriceUpdate()
	assert.Equal(t, "tok", u.TokenID)
	assert.InDelta(t, 0.62, u.Price, 1e-9)
	assert.Equal(t, int64(1767225600), u.Timestamp.Unix())
}
