package postgres

import (
	"context"
	"fmt"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/storage"
)

// OptionsAggregateStore implements storage.OptionsAggregateStore using
// PostgreSQL. IV/skew/OI columns are nullable; nil round-trips as SQL NULL.
type OptionsAggregateStore struct {
	pool *Pool
}

// NewOptionsAggregateStore creates a new OptionsAggregateStore.
func NewOptionsAggregateStore(pool *Pool) *OptionsAggregateStore {
	return &OptionsAggregateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OptionsAggregateStore = (*OptionsAggregateStore)(nil)

const insertOptionsAggQuery = `
	INSERT INTO options_agg (
		symbol, timestamp_ms,
		put_volume, call_volume, at_ask_volume, at_bid_volume, total_volume,
		iv_atm, iv_25d_call, iv_25d_put, open_interest
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
func (s *OptionsAggregateStore) InsertBulk(ctx context.Context, aggs []*domain.OptionsAggregate) error {
	if len(aggs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, a := range aggs {
		_, err := tx.Exec(ctx, insertOptionsAggQuery,
			a.Symbol, a.TimestampMs,
			a.PutVolume, a.CallVolume, a.AtAskVolume, a.AtBidVolume, a.TotalVolume,
			a.IVATM, a.IV25DCall, a.IV25DPut, a.OpenInterest,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert options aggregate in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetBySymbol retrieves all aggregates for a symbol, ordered by timestamp ASC.
func (s *OptionsAggregateStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.OptionsAggregate, error) {
	query := `
		SELECT symbol, timestamp_ms,
		       put_volume, call_volume, at_ask_volume, at_bid_volume, total_volume,
		       iv_atm, iv_25d_call, iv_25d_put, open_interest
		FROM options_agg
		WHERE symbol = $1
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query options aggregates by symbol: %w", err)
	}
	defer rows.Close()

	return scanOptionsAggregates(rows)
}

// GetAll retrieves every aggregate, ordered by (symbol, timestamp) ASC.
func (s *OptionsAggregateStore) GetAll(ctx context.Context) ([]*domain.OptionsAggregate, error) {
	query := `
		SELECT symbol, timestamp_ms,
		       put_volume, call_volume, at_ask_volume, at_bid_volume, total_volume,
		       iv_atm, iv_25d_call, iv_25d_put, open_interest
		FROM options_agg
		ORDER BY symbol ASC, timestamp_ms ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all options aggregates: %w", err)
	}
	defer rows.Close()

	return scanOptionsAggregates(rows)
}

// scanOptionsAggregates scans multiple rows.
func scanOptionsAggregates(rows pgRows) ([]*domain.OptionsAggregate, error) {
	var aggs []*domain.OptionsAggregate
	for rows.Next() {
		var a domain.OptionsAggregate
		err := rows.Scan(
			&a.Symbol, &a.TimestampMs,
			&a.PutVolume, &a.CallVolume, &a.AtAskVolume, &a.AtBidVolume, &a.TotalVolume,
			&a.IVATM, &a.IV25DCall, &a.IV25DPut, &a.OpenInterest,
		)
		if err != nil {
			return nil, fmt.Errorf("scan options aggregate row: %w", err)
		}
		aggs = append(aggs, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options aggregate rows: %w", err)
	}
	return aggs, nil
}
