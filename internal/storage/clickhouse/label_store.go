package clickhouse

import (
	"context"
	"fmt"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/storage"
)

// LabelStore implements storage.LabelStore using ClickHouse. Per-horizon
// returns are stored as parallel horizon/value arrays so the schema stays
// fixed across horizon configurations.
type LabelStore struct {
	conn *Conn
}

// NewLabelStore creates a new LabelStore.
func NewLabelStore(conn *Conn) *LabelStore {
	return &LabelStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LabelStore = (*LabelStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate
// (symbol, timestamp_ms).
func (s *LabelStore) InsertBulk(ctx context.Context, rows []*domain.LabelRow) error {
	if len(rows) == 0 {
		return nil
	}

	if err := checkDuplicates(ctx, s.conn, "labels", rowKeys(rows, func(r *domain.LabelRow) (string, int64) {
		return r.Symbol, r.TimestampMs
	})); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO labels (
			symbol, timestamp_ms, source, horizons, fwd_returns
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		horizons := make([]string, len(r.Returns))
		values := make([]*float64, len(r.Returns))
		for i, hr := range r.Returns {
			horizons[i] = hr.Horizon
			values[i] = hr.Value
		}
		if err := batch.Append(r.Symbol, uint64(r.TimestampMs), r.Source, horizons, values); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
func (s *LabelStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.LabelRow, error) {
	query := `
		SELECT symbol, timestamp_ms, source, horizons, fwd_returns
		FROM labels
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query labels by symbol: %w", err)
	}
	defer rows.Close()

	return scanLabels(rows)
}

// scanLabels scans multiple rows.
func scanLabels(rows chRows) ([]*domain.LabelRow, error) {
	var result []*domain.LabelRow

	for rows.Next() {
		var r domain.LabelRow
		var timestampMs uint64
		var horizons []string
		var values []*float64

		if err := rows.Scan(&r.Symbol, &timestampMs, &r.Source, &horizons, &values); err != nil {
			return nil, fmt.Errorf("scan label row: %w", err)
		}

		r.TimestampMs = int64(timestampMs)
		for i := range horizons {
			hr := domain.HorizonReturn{Horizon: horizons[i]}
			if i < len(values) {
				hr.Value = values[i]
			}
			r.Returns = append(r.Returns, hr)
		}
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate label rows: %w", err)
	}
	return result, nil
}
