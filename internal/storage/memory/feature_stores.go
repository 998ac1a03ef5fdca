package memory

import (
	"context"
	"sort"
	"sync"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/storage"
)

// MicroFeatureStore is an in-memory implementation of storage.MicroFeatureStore.
type MicroFeatureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MicroFeatureRow // keyed by (symbol, timestamp_ms)
}

// NewMicroFeatureStore creates a new in-memory microstructure feature store.
func NewMicroFeatureStore() *MicroFeatureStore {
	return &MicroFeatureStore{data: make(map[string]*domain.MicroFeatureRow)}
}

var _ storage.MicroFeatureStore = (*MicroFeatureStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
func (s *MicroFeatureStore) InsertBulk(_ context.Context, rows []*domain.MicroFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(r.Symbol, r.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		s.data[barKey(r.Symbol, r.TimestampMs)] = copyMicroRow(r)
	}
	return nil
}

// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
func (s *MicroFeatureStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.MicroFeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MicroFeatureRow
	for _, r := range s.data {
		if r.Symbol == symbol {
			result = append(result, copyMicroRow(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

func copyMicroRow(r *domain.MicroFeatureRow) *domain.MicroFeatureRow {
	rowCopy := *r
	rowCopy.VolRolling = append([]domain.WindowValue(nil), r.VolRolling...)
	rowCopy.CVDZ = append([]domain.WindowValue(nil), r.CVDZ...)
	return &rowCopy
}

// OptionsFeatureStore is an in-memory implementation of storage.OptionsFeatureStore.
type OptionsFeatureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OptionsFeatureRow // keyed by (symbol, timestamp_ms)
}

// NewOptionsFeatureStore creates a new in-memory options feature store.
func NewOptionsFeatureStore() *OptionsFeatureStore {
	return &OptionsFeatureStore{data: make(map[string]*domain.OptionsFeatureRow)}
}

var _ storage.OptionsFeatureStore = (*OptionsFeatureStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
func (s *OptionsFeatureStore) InsertBulk(_ context.Context, rows []*domain.OptionsFeatureRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(r.Symbol, r.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		rowCopy := *r
		s.data[barKey(r.Symbol, r.TimestampMs)] = &rowCopy
	}
	return nil
}

// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
func (s *OptionsFeatureStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.OptionsFeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OptionsFeatureRow
	for _, r := range s.data {
		if r.Symbol == symbol {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// LabelStore is an in-memory implementation of storage.LabelStore.
type LabelStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LabelRow // keyed by (symbol, timestamp_ms)
}

// NewLabelStore creates a new in-memory label store.
func NewLabelStore() *LabelStore {
	return &LabelStore{data: make(map[string]*domain.LabelRow)}
}

var _ storage.LabelStore = (*LabelStore)(nil)

// InsertBulk adds multiple rows. Fails entire batch on duplicate.
func (s *LabelStore) InsertBulk(_ context.Context, rows []*domain.LabelRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(r.Symbol, r.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		rowCopy := *r
		rowCopy.Returns = append([]domain.HorizonReturn(nil), r.Returns...)
		s.data[barKey(r.Symbol, r.TimestampMs)] = &rowCopy
	}
	return nil
}

// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
func (s *LabelStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.LabelRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LabelRow
	for _, r := range s.data {
		if r.Symbol == symbol {
			rowCopy := *r
			rowCopy.Returns = append([]domain.HorizonReturn(nil), r.Returns...)
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}
