package clickhouse

import (
	"context"
	"fmt"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/storage"
)

// MicroFeatureStore implements storage.MicroFeatureStore using ClickHouse.
// Window-parameterized columns (vol_rolling_{n}, cvd_z_{n}) are stored as
// parallel window/value arrays so the table schema stays fixed across
// configurations.
type MicroFeatureStore struct {
	conn *Conn
}

// NewMicroFeatureStore creates a new MicroFeatureStore.
func NewMicroFeatureStore(conn *Conn) *MicroFeatureStore {
	return &MicroFeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MicroFeatureStore = (*MicroFeatureStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate
// (symbol, timestamp_ms).
func (s *MicroFeatureStore) InsertBulk(ctx context.Context, rows []*domain.MicroFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	if err := checkDuplicates(ctx, s.conn, "micro_features", rowKeys(rows, func(r *domain.MicroFeatureRow) (string, int64) {
		return r.Symbol, r.TimestampMs
	})); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO micro_features (
			symbol, timestamp_ms, source,
			ret_1, delta_vol, cvd_proxy, bar_imbalance, vwap,
			vol_windows, vol_values, cvd_z_windows, cvd_z_values
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		volWindows, volValues := splitWindowValues(r.VolRolling)
		cvdzWindows, cvdzValues := splitWindowValues(r.CVDZ)
		err = batch.Append(
			r.Symbol, uint64(r.TimestampMs), r.Source,
			r.Ret1, r.DeltaVol, r.CVDProxy, r.BarImbalance, r.VWAP,
			volWindows, volValues, cvdzWindows, cvdzValues,
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
func (s *MicroFeatureStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.MicroFeatureRow, error) {
	query := `
		SELECT symbol, timestamp_ms, source,
		       ret_1, delta_vol, cvd_proxy, bar_imbalance, vwap,
		       vol_windows, vol_values, cvd_z_windows, cvd_z_values
		FROM micro_features
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query micro features by symbol: %w", err)
	}
	defer rows.Close()

	return scanMicroFeatures(rows)
}

// scanMicroFeatures scans multiple rows.
func scanMicroFeatures(rows chRows) ([]*domain.MicroFeatureRow, error) {
	var result []*domain.MicroFeatureRow

	for rows.Next() {
		var r domain.MicroFeatureRow
		var timestampMs uint64
		var volWindows, cvdzWindows []uint32
		var volValues, cvdzValues []*float64

		err := rows.Scan(
			&r.Symbol, &timestampMs, &r.Source,
			&r.Ret1, &r.DeltaVol, &r.CVDProxy, &r.BarImbalance, &r.VWAP,
			&volWindows, &volValues, &cvdzWindows, &cvdzValues,
		)
		if err != nil {
			return nil, fmt.Errorf("scan micro feature row: %w", err)
		}

		r.TimestampMs = int64(timestampMs)
		r.VolRolling = joinWindowValues(volWindows, volValues)
		r.CVDZ = joinWindowValues(cvdzWindows, cvdzValues)
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate micro feature rows: %w", err)
	}
	return result, nil
}

// splitWindowValues decomposes window-tagged values into parallel arrays.
func splitWindowValues(wvs []domain.WindowValue) ([]uint32, []*float64) {
	windows := make([]uint32, len(wvs))
	values := make([]*float64, len(wvs))
	for i, wv := range wvs {
		windows[i] = uint32(wv.Window)
		values[i] = wv.Value
	}
	return windows, values
}

// joinWindowValues recomposes parallel arrays into window-tagged values.
func joinWindowValues(windows []uint32, values []*float64) []domain.WindowValue {
	if len(windows) == 0 {
		return nil
	}
	wvs := make([]domain.WindowValue, len(windows))
	for i := range windows {
		wvs[i] = domain.WindowValue{Window: int(windows[i])}
		if i < len(values) {
			wvs[i].Value = values[i]
		}
	}
	return wvs
}

// rowKey identifies one (symbol, timestamp_ms) pair.
type rowKey struct {
	symbol      string
	timestampMs int64
}

func rowKeys[T any](rows []T, key func(T) (string, int64)) []rowKey {
	keys := make([]rowKey, len(rows))
	for i, r := range rows {
		sym, ts := key(r)
		keys[i] = rowKey{symbol: sym, timestampMs: ts}
	}
	return keys
}

// checkDuplicates rejects intra-batch duplicates and keys already present
// in the table. MergeTree does not enforce uniqueness at insert time, so
// the append-only contract is enforced here.
func checkDuplicates(ctx context.Context, conn *Conn, table string, keys []rowKey) error {
	seen := make(map[rowKey]struct{}, len(keys))
	for _, k := range keys {
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, k := range keys {
		query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE symbol = ? AND timestamp_ms = ?`, table)
		var count uint64
		if err := conn.QueryRow(ctx, query, k.symbol, uint64(k.timestampMs)).Scan(&count); err != nil {
			return fmt.Errorf("check exists in %s: %w", table, err)
		}
		if count > 0 {
			return storage.ErrDuplicateKey
		}
	}
	return nil
}
