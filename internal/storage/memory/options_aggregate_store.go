package memory

import (
	"context"
	"sort"
	"sync"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/storage"
)

// OptionsAggregateStore is an in-memory implementation of
// storage.OptionsAggregateStore.
type OptionsAggregateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OptionsAggregate // keyed by (symbol, timestamp_ms)
}

// NewOptionsAggregateStore creates a new in-memory options aggregate store.
func NewOptionsAggregateStore() *OptionsAggregateStore {
	return &OptionsAggregateStore{data: make(map[string]*domain.OptionsAggregate)}
}

var _ storage.OptionsAggregateStore = (*OptionsAggregateStore)(nil)

// InsertBulk adds multiple aggregates. Fails entire batch on duplicate.
func (s *OptionsAggregateStore) InsertBulk(_ context.Context, aggs []*domain.OptionsAggregate) error {
	if len(aggs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(aggs))
	for _, a := range aggs {
		if a == nil || a.Symbol == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(a.Symbol, a.TimestampMs)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, a := range aggs {
		aggCopy := *a
		s.data[barKey(a.Symbol, a.TimestampMs)] = &aggCopy
	}
	return nil
}

// GetBySymbol retrieves all aggregates for a symbol, ordered by timestamp ASC.
func (s *OptionsAggregateStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.OptionsAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OptionsAggregate
	for _, a := range s.data {
		if a.Symbol == symbol {
			aggCopy := *a
			result = append(result, &aggCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// GetAll retrieves every aggregate, ordered by (symbol, timestamp) ASC.
func (s *OptionsAggregateStore) GetAll(_ context.Context) ([]*domain.OptionsAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.OptionsAggregate, 0, len(s.data))
	for _, a := range s.data {
		aggCopy := *a
		result = append(result, &aggCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Symbol != result[j].Symbol {
			return result[i].Symbol < result[j].Symbol
		}
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}
