package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TradeStore persists the append-only trade log. The engine writes behind
// the in-memory ledger; the external dashboard reads.
type TradeStore interface {
	Insert(ctx context.Context, rec TradeRecord) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]TradeRecord, error)
	ListRecent(ctx context.Context, limit int) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// EquityStore persists equity-curve samples.
type EquityStore interface {
	Insert(ctx context.Context, pt EquityPoint) error
	ListSince(ctx context.Context, since time.Time) ([]EquityPoint, error)
}
