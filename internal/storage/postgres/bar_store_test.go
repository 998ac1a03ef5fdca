package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/storage"
)

func TestBarStore_InsertBulkAndGetBySymbol(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	bars := []*domain.Bar{
		{Symbol: "BTC", TimestampMs: 1700000120000, Open: 101, High: 103, Low: 100, Close: 102, Volume: 12},
		{Symbol: "BTC", TimestampMs: 1700000060000, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10},
		{Symbol: "ETH", TimestampMs: 1700000060000, Open: 2000, High: 2010, Low: 1990, Close: 2005, Volume: 50},
	}
	err := store.InsertBulk(ctx, bars)
	require.NoError(t, err)

	retrieved, err := store.GetBySymbol(ctx, "BTC")
	require.NoError(t, err)
	require.Len(t, retrieved, 2)

	// ordered by timestamp ASC
	assert.Equal(t, int64(1700000060000), retrieved[0].TimestampMs)
	assert.Equal(t, int64(1700000120000), retrieved[1].TimestampMs)
	assert.Equal(t, 100.0, retrieved[0].Open)
	assert.Equal(t, 102.0, retrieved[0].High)
	assert.Equal(t, 99.0, retrieved[0].Low)
	assert.Equal(t, 101.0, retrieved[0].Close)
	assert.Equal(t, 10.0, retrieved[0].Volume)
}

func TestBarStore_InsertBulkDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	bar := &domain.Bar{Symbol: "BTC", TimestampMs: 1700000060000, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10}
	err := store.InsertBulk(ctx, []*domain.Bar{bar})
	require.NoError(t, err)

	// Second insert of the same key should return ErrDuplicateKey
	err = store.InsertBulk(ctx, []*domain.Bar{bar})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBarStore_InsertBulkAtomicOnDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Bar{
		{Symbol: "BTC", TimestampMs: 1700000060000, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10},
	})
	require.NoError(t, err)

	// Batch containing one duplicate must not be partially applied
	err = store.InsertBulk(ctx, []*domain.Bar{
		{Symbol: "BTC", TimestampMs: 1700000120000, Open: 101, High: 103, Low: 100, Close: 102, Volume: 12},
		{Symbol: "BTC", TimestampMs: 1700000060000, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	bars, err := store.GetBySymbol(ctx, "BTC")
	require.NoError(t, err)
	assert.Len(t, bars, 1)
}

func TestBarStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Bar{
		{Symbol: "BTC", TimestampMs: 1000, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Symbol: "BTC", TimestampMs: 2000, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Symbol: "BTC", TimestampMs: 3000, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
	})
	require.NoError(t, err)

	// bounds are inclusive
	bars, err := store.GetByTimeRange(ctx, "BTC", 1000, 2000)
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestBarStore_GetAllOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Bar{
		{Symbol: "ETH", TimestampMs: 1000, Open: 2000, High: 2010, Low: 1990, Close: 2005, Volume: 50},
		{Symbol: "BTC", TimestampMs: 2000, Open: 101, High: 103, Low: 100, Close: 102, Volume: 12},
		{Symbol: "BTC", TimestampMs: 1000, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10},
	})
	require.NoError(t, err)

	bars, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, "BTC", bars[0].Symbol)
	assert.Equal(t, int64(1000), bars[0].TimestampMs)
	assert.Equal(t, "BTC", bars[1].Symbol)
	assert.Equal(t, int64(2000), bars[1].TimestampMs)
	assert.Equal(t, "ETH", bars[2].Symbol)
}

func TestBarStore_ListSymbols(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.Bar{
		{Symbol: "ETH", TimestampMs: 1000, Open: 2000, High: 2010, Low: 1990, Close: 2005, Volume: 50},
		{Symbol: "BTC", TimestampMs: 1000, Open: 100, High: 102, Low: 99, Close: 101, Volume: 10},
	})
	require.NoError(t, err)

	symbols, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH"}, symbols)
}

func TestBarStore_GetBySymbolEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBarStore(pool)

	bars, err := store.GetBySymbol(context.Background(), "MISSING")
	require.NoError(t, err)
	assert.Empty(t, bars)
}
