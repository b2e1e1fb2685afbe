package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest known price per outcome
// token. It is written by the engine each cycle and by the live price feed
// between cycles; the engine reads it when evaluating exits for markets
// that have dropped out of the active set.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error)
}

// EventBus publishes engine events (cycle metrics, trade records) for
// external consumers. Pub/sub delivery is ephemeral; stream delivery is
// durable and ordered.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
