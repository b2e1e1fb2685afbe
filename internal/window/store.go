// Package window maintains bounded per-market histories of price and volume
// observations for the signal layer to read.
package window

import (
	"sync"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

// DefaultCapacity is the per-market observation capacity used when the
// configured capacity is zero or negative.
const DefaultCapacity = 100

// ring is one market's window: obs[head:] holds the live observations, the
// prefix before head is evicted entries awaiting compaction.
type ring struct {
	obs  []domain.Observation
	head int
}

func (r *ring) live() []domain.Observation {
	return r.obs[r.head:]
}

// Store holds a bounded observation window per market. Appends evict the
// oldest observation once a window is full, and observations arriving with
// timestamps older than the newest recorded one are dropped so each window
// stays ordered by time.
type Store struct {
	capacity int
	mu       sync.RWMutex
	windows  map[string]*ring
}

// NewStore creates a Store with the given per-market capacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		windows:  make(map[string]*ring),
	}
}

// Capacity returns the per-market observation capacity.
func (s *Store) Capacity() int {
	return s.capacity
}

// Append records an observation for its market, evicting the oldest entry
// when the window is at capacity. Out-of-order observations (timestamp
// before the newest recorded one) are discarded. Eviction advances a head
// index and compacts the backing slice once the evicted prefix outgrows the
// window, keeping appends O(1) amortized.
func (s *Store) Append(obs domain.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.windows[obs.MarketID]
	if r == nil {
		r = &ring{obs: make([]domain.Observation, 0, s.capacity)}
		s.windows[obs.MarketID] = r
	}

	if live := r.live(); len(live) > 0 && obs.Timestamp.Before(live[len(live)-1].Timestamp) {
		return
	}
	if len(r.live()) == s.capacity {
		r.head++
	}
	r.obs = append(r.obs, obs)

	if r.head > s.capacity {
		n := copy(r.obs, r.obs[r.head:])
		r.obs = r.obs[:n]
		r.head = 0
	}
}

// Recent returns up to the last k observations for a market, oldest first.
// It returns fewer than k when the window is short, and nil when the market
// is unknown. The returned slice is a copy, safe to retain.
func (s *Store) Recent(marketID string, k int) []domain.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := s.windows[marketID]
	if r == nil || k <= 0 {
		return nil
	}
	w := r.live()
	if len(w) == 0 {
		return nil
	}
	if k > len(w) {
		k = len(w)
	}
	out := make([]domain.Observation, k)
	copy(out, w[len(w)-k:])
	return out
}

// Len returns the number of observations held for a market.
func (s *Store) Len(marketID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := s.windows[marketID]
	if r == nil {
		return 0
	}
	return len(r.live())
}

// Markets returns the IDs of all markets with at least one observation.
func (s *Store) Markets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.windows))
	for id := range s.windows {
		out = append(out, id)
	}
	return out
}
