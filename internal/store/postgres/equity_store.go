package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redlabelintel/momentumbot/internal/domain"
)

// EquityStore implements domain.EquityStore using PostgreSQL.
type EquityStore struct {
	pool *pgxpool.Pool
}

// NewEquityStore creates a new EquityStore backed by the given connection pool.
func NewEquityStore(pool *pgxpool.Pool) *EquityStore {
	return &EquityStore{pool: pool}
}

// Insert writes a single equity-curve sample.
func (s *EquityStore) Insert(ctx context.Context, pt domain.EquityPoint) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO equity_points (timestamp, bankroll) VALUES ($1, $2)`,
		pt.Timestamp, pt.Bankroll,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert equity point: %w", err)
	}
	return nil
}

// ListSince returns equity samples at or after the given time, oldest first.
func (s *EquityStore) ListSince(ctx context.Context, since time.Time) ([]domain.EquityPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT timestamp, bankroll FROM equity_points WHERE timestamp >= $1 ORDER BY timestamp ASC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list equity points: %w", err)
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var pt domain.EquityPoint
		if err := rows.Scan(&pt.Timestamp, &pt.Bankroll); err != nil {
			return nil, fmt.Errorf("postgres: scan equity point: %w", err)
		}
		points = append(points, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate equity points: %w", err)
	}
	return points, nil
}

// Compile-time interface check.
var _ domain.EquityStore = (*EquityStore)(nil)
