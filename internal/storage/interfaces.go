package storage

import (
	"context"

	"orderflow-lab/internal/domain"
)

// BarStore provides access to bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars atomically. Fails entire batch on any
	// duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Bar, error)

	// GetAll retrieves every bar, ordered by (symbol, timestamp) ASC.
	GetAll(ctx context.Context) ([]*domain.Bar, error)

	// ListSymbols returns the distinct symbols present, sorted ASC.
	ListSymbols(ctx context.Context) ([]string, error)
}

// OptionsAggregateStore provides access to options_agg storage.
type OptionsAggregateStore interface {
	// InsertBulk adds multiple aggregates atomically. Fails entire batch on
	// any duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, aggs []*domain.OptionsAggregate) error

	// GetBySymbol retrieves all aggregates for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.OptionsAggregate, error)

	// GetAll retrieves every aggregate, ordered by (symbol, timestamp) ASC.
	GetAll(ctx context.Context) ([]*domain.OptionsAggregate, error)
}

// MicroFeatureStore provides access to micro_features storage.
type MicroFeatureStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate
	// (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, rows []*domain.MicroFeatureRow) error

	// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.MicroFeatureRow, error)
}

// OptionsFeatureStore provides access to options_features storage.
type OptionsFeatureStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate
	// (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, rows []*domain.OptionsFeatureRow) error

	// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.OptionsFeatureRow, error)
}

// LabelStore provides access to labels storage.
type LabelStore interface {
	// InsertBulk adds multiple rows. Fails entire batch on duplicate
	// (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, rows []*domain.LabelRow) error

	// GetBySymbol retrieves all rows for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.LabelRow, error)
}
