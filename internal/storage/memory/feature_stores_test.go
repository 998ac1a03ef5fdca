package memory

import (
	"context"
	"errors"
	"testing"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/storage"
)

func ptr(v float64) *float64 { return &v }

func TestMicroFeatureStore_InsertAndGet(t *testing.T) {
	store := NewMicroFeatureStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.MicroFeatureRow{
		{Symbol: "BTC", TimestampMs: 2000, Source: domain.SourceMicrostructure, DeltaVol: 5},
		{Symbol: "BTC", TimestampMs: 1000, Source: domain.SourceMicrostructure, DeltaVol: -3},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := store.GetBySymbol(ctx, "BTC")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rows) != 2 || rows[0].TimestampMs != 1000 || rows[1].TimestampMs != 2000 {
		t.Error("rows should be ordered by timestamp ASC")
	}
	if rows[0].DeltaVol != -3 {
		t.Errorf("unexpected delta_vol %v", rows[0].DeltaVol)
	}
}

func TestMicroFeatureStore_DuplicateRejected(t *testing.T) {
	store := NewMicroFeatureStore()
	ctx := context.Background()

	row := &domain.MicroFeatureRow{Symbol: "BTC", TimestampMs: 1000}
	if err := store.InsertBulk(ctx, []*domain.MicroFeatureRow{row}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := store.InsertBulk(ctx, []*domain.MicroFeatureRow{row})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestMicroFeatureStore_WindowSlicesCopied(t *testing.T) {
	store := NewMicroFeatureStore()
	ctx := context.Background()

	original := &domain.MicroFeatureRow{
		Symbol:      "BTC",
		TimestampMs: 1000,
		VolRolling:  []domain.WindowValue{{Window: 5, Value: ptr(0.02)}},
		CVDZ:        []domain.WindowValue{{Window: 50, Value: ptr(1.5)}},
	}
	if err := store.InsertBulk(ctx, []*domain.MicroFeatureRow{original}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// mutating the window slice after insert must not reach the store
	original.VolRolling[0].Value = ptr(999)

	rows, _ := store.GetBySymbol(ctx, "BTC")
	if v := rows[0].VolRollingAt(5); v == nil || *v != 0.02 {
		t.Error("store must deep-copy window slices on insert")
	}

	// mutating a read result must not reach subsequent reads
	rows[0].CVDZ[0].Value = ptr(-7)
	again, _ := store.GetBySymbol(ctx, "BTC")
	if v := again[0].CVDZAt(50); v == nil || *v != 1.5 {
		t.Error("store must deep-copy window slices on read")
	}
}

func TestOptionsFeatureStore_InsertAndGet(t *testing.T) {
	store := NewOptionsFeatureStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.OptionsFeatureRow{
		{Symbol: "BTC", TimestampMs: 1000, Source: domain.SourceOptionsFlow, PCR: ptr(0.5)},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := store.GetBySymbol(ctx, "BTC")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rows) != 1 || rows[0].PCR == nil || *rows[0].PCR != 0.5 {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestOptionsFeatureStore_EmptySymbolRejected(t *testing.T) {
	store := NewOptionsFeatureStore()

	err := store.InsertBulk(context.Background(), []*domain.OptionsFeatureRow{
		{Symbol: "", TimestampMs: 1000},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLabelStore_InsertAndGet(t *testing.T) {
	store := NewLabelStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.LabelRow{
		{
			Symbol:      "BTC",
			TimestampMs: 1000,
			Source:      domain.SourceLabeling,
			Returns:     []domain.HorizonReturn{{Horizon: "1d", Value: ptr(0.01)}},
		},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := store.GetBySymbol(ctx, "BTC")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v := rows[0].ReturnFor("1d"); v == nil || *v != 0.01 {
		t.Errorf("unexpected label row %+v", rows[0])
	}
}

func TestLabelStore_ReturnsSliceCopied(t *testing.T) {
	store := NewLabelStore()
	ctx := context.Background()

	original := &domain.LabelRow{
		Symbol:      "BTC",
		TimestampMs: 1000,
		Returns:     []domain.HorizonReturn{{Horizon: "1d", Value: ptr(0.01)}},
	}
	if err := store.InsertBulk(ctx, []*domain.LabelRow{original}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	original.Returns[0].Value = ptr(999)
	rows, _ := store.GetBySymbol(ctx, "BTC")
	if v := rows[0].ReturnFor("1d"); v == nil || *v != 0.01 {
		t.Error("store must deep-copy the returns slice on insert")
	}
}

func TestLabelStore_IntraBatchDuplicateRejected(t *testing.T) {
	store := NewLabelStore()

	err := store.InsertBulk(context.Background(), []*domain.LabelRow{
		{Symbol: "BTC", TimestampMs: 1000},
		{Symbol: "BTC", TimestampMs: 1000},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
