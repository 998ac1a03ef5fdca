package clickhouse

import (
	"context"
	"fmt"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/storage"
)

// OptionsFeatureStore implements storage.OptionsFeatureStore using ClickHouse.
type OptionsFeatureStore struct {
	conn *Conn
}

// NewOptionsFeatureStore creates a new OptionsFeatureStore.
func NewOptionsFeatureStore(conn *Conn) *OptionsFeatureStore {
	return &OptionsFeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OptionsFeatureStore = (*OptionsFeatureStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate
// (symbol, timestamp_ms).
func (s *OptionsFeatureStore) InsertBulk(ctx context.Context, rows []*domain.OptionsFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	if err := checkDuplicates(ctx, s.conn, "options_features", rowKeys(rows, func(r *domain.OptionsFeatureRow) (string, int64) {
		return r.Symbol, r.TimestampMs
	})); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO options_features (
			symbol, timestamp_ms, source,
			pcr, at_ask_bias, opt_vol_intensity,
			iv_atm, skew_25d, d_iv_atm, d_skew_25d,
			open_interest, d_oi, pcr_z, at_ask_bias_z
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		err = batch.Append(
			r.Symbol, uint64(r.TimestampMs), r.Source,
			r.PCR, r.AtAskBias, r.OptVolIntensity,
			r.IVATM, r.Skew25d, r.DIVATM, r.DSkew25d,
			r.OpenInterest, r.DOI, r.PCRZ, r.AtAskBiasZ,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
func (s *OptionsFeatureStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.OptionsFeatureRow, error) {
	query := `
		SELECT symbol, timestamp_ms, source,
		       pcr, at_ask_bias, opt_vol_intensity,
		       iv_atm, skew_25d, d_iv_atm, d_skew_25d,
		       open_interest, d_oi, pcr_z, at_ask_bias_z
		FROM options_features
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query options features by symbol: %w", err)
	}
	defer rows.Close()

	return scanOptionsFeatures(rows)
}

// scanOptionsFeatures scans multiple rows.
func scanOptionsFeatures(rows chRows) ([]*domain.OptionsFeatureRow, error) {
	var result []*domain.OptionsFeatureRow

	for rows.Next() {
		var r domain.OptionsFeatureRow
		var timestampMs uint64

		err := rows.Scan(
			&r.Symbol, &timestampMs, &r.Source,
			&r.PCR, &r.AtAskBias, &r.OptVolIntensity,
			&r.IVATM, &r.Skew25d, &r.DIVATM, &r.DSkew25d,
			&r.OpenInterest, &r.DOI, &r.PCRZ, &r.AtAskBiasZ,
		)
		if err != nil {
			return nil, fmt.Errorf("scan options feature row: %w", err)
		}

		r.TimestampMs = int64(timestampMs)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options feature rows: %w", err)
	}
	return result, nil
}
