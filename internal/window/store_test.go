package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

func obs(market string, t time.Time, price, volume float64) domain.Observation {
	return domain.Observation{MarketID: market, Timestamp: t, Price: price, Volume: volume}
}

func TestAppendAndRecent(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Append(obs("m1", base.Add(time.Duration(i)*time.Minute), 0.40+float64(i)*0.01, 100))
	}

	require.Equal(t, 5, s.Len("m1"))

	recent := s.Recent("m1", 3)
	require.Len(t, recent, 3)
	assert.InDelta(t, 0.42, recent[0].Price, 1e-9)
	assert.InDelta(t, 0.44, recent[2].Price, 1e-9)
}

func TestRecentShorterThanRequested(t *testing.T) {
	s := NewStore(10)
	s.Append(obs("m1", time.Now(), 0.5, 10))

	recent := s.Recent("m1", 100)
	assert.Len(t, recent, 1)
	assert.Nil(t, s.Recent("unknown", 5))
}

func TestEvictionAtCapacity(t *testing.T) {
	s := NewStore(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		s.Append(obs("m1", base.Add(time.Duration(i)*time.Second), float64(i+1)/10, 1))
	}

	require.Equal(t, 3, s.Len("m1"))
	recent := s.Recent("m1", 3)
	assert.InDelta(t, 0.4, recent[0].Price, 1e-9)
	assert.InDelta(t, 0.6, recent[2].Price, 1e-9)
}

func TestEvictionAcrossCompactionCycles(t *testing.T) {
	s := NewStore(4)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Enough appends to force several compactions of the backing slice.
	for i := 0; i < 50; i++ {
		s.Append(obs("m1", base.Add(time.Duration(i)*time.Second), float64(i), float64(i)))
	}

	require.Equal(t, 4, s.Len("m1"))
	recent := s.Recent("m1", 4)
	require.Len(t, recent, 4)
	for i, o := range recent {
		assert.InDelta(t, float64(46+i), o.Price, 1e-9)
	}
}

func TestCapacity(t *testing.T) {
	assert.Equal(t, 7, NewStore(7).Capacity())
	assert.Equal(t, DefaultCapacity, NewStore(0).Capacity())
}

func TestOutOfOrderObservationDropped(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.Append(obs("m1", base.Add(time.Minute), 0.50, 1))
	s.Append(obs("m1", base, 0.99, 1)) // stale, must be ignored

	require.Equal(t, 1, s.Len("m1"))
	assert.InDelta(t, 0.50, s.Recent("m1", 1)[0].Price, 1e-9)
}

func TestEqualTimestampKept(t *testing.T) {
	s := NewStore(10)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.Append(obs("m1", ts, 0.50, 1))
	s.Append(obs("m1", ts, 0.51, 1))

	assert.Equal(t, 2, s.Len("m1"))
}

func TestRecentReturnsCopy(t *testing.T) {
	s := NewStore(10)
	s.Append(obs("m1", time.Now(), 0.5, 1))

	recent := s.Recent("m1", 1)
	recent[0].Price = 0.99

	assert.InDelta(t, 0.5, s.Recent("m1", 1)[0].Price, 1e-9)
}

func TestMarkets(t *testing.T) {
	s := NewStore(10)
	s.Append(obs("a", time.Now(), 0.5, 1))
	s.Append(obs("b", time.Now(), 0.5, 1))

	assert.ElementsMatch(t, []string{"a", "b"}, s.Markets())
}
