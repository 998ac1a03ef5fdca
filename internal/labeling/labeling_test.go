package labeling

import (
	"errors"
	"math"
	"testing"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/panel"
)

const dayMs = int64(24 * 60 * 60 * 1000)

func dailyBar(symbol string, day int, close float64) *domain.Bar {
	return &domain.Bar{
		TimestampMs: int64(day) * dayMs,
		Symbol:      symbol,
		Open:        close,
		High:        close,
		Low:         close,
		Close:       close,
		Volume:      1,
	}
}

func labelConfig(mode domain.LabelMode, horizons ...string) domain.DatasetConfig {
	cfg := domain.DefaultConfig(domain.CadenceDaily)
	cfg.LabelMode = mode
	cfg.Horizons = nil
	for _, raw := range horizons {
		h, err := domain.ParseHorizon(raw)
		if err != nil {
			panic(err)
		}
		cfg.Horizons = append(cfg.Horizons, h)
	}
	return cfg
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeLabels_BarCountRoundTrip(t *testing.T) {
	bars := []*domain.Bar{
		dailyBar("BTC", 0, 100),
		dailyBar("BTC", 1, 110),
		dailyBar("BTC", 2, 121),
	}

	rows, err := ComputeLabels(panel.New(bars), labelConfig(domain.LabelModeBarCount, "1d"))
	if err != nil {
		t.Fatalf("ComputeLabels failed: %v", err)
	}

	// Bar 0 pairs with bar 1: ln(110/100)
	v := rows[0].ReturnFor("1d")
	if v == nil || !approxEqual(*v, math.Log(1.1)) {
		t.Errorf("fwd_ret_1d[0] = %v, want ln(1.1)", v)
	}
	// The last bar has no future bar
	if rows[2].ReturnFor("1d") != nil {
		t.Error("expected missing label at the last bar")
	}
}

func TestComputeLabels_CalendarPairsEarliestAtOrAfter(t *testing.T) {
	// Day 1 is missing: a 1d horizon from day 0 must pair with day 2,
	// the earliest observation at or after the target. Nothing in
	// between is consulted.
	bars := []*domain.Bar{
		dailyBar("BTC", 0, 100),
		dailyBar("BTC", 2, 120),
		dailyBar("BTC", 3, 130),
	}

	rows, err := ComputeLabels(panel.New(bars), labelConfig(domain.LabelModeCalendar, "1d"))
	if err != nil {
		t.Fatalf("ComputeLabels failed: %v", err)
	}

	v := rows[0].ReturnFor("1d")
	if v == nil || !approxEqual(*v, math.Log(1.2)) {
		t.Errorf("fwd_ret_1d[0] = %v, want ln(1.2)", v)
	}
	// Day 2's 1d target is day 3, which exists exactly
	v = rows[1].ReturnFor("1d")
	if v == nil || !approxEqual(*v, math.Log(130.0/120.0)) {
		t.Errorf("fwd_ret_1d[1] = %v, want ln(130/120)", v)
	}
	// Day 3 has nothing at or after day 4
	if rows[2].ReturnFor("1d") != nil {
		t.Error("expected missing label at the tail")
	}
}

func TestComputeLabels_MultipleHorizons(t *testing.T) {
	var bars []*domain.Bar
	for day := 0; day < 10; day++ {
		bars = append(bars, dailyBar("BTC", day, 100+float64(day)))
	}

	rows, err := ComputeLabels(panel.New(bars), labelConfig(domain.LabelModeCalendar, "1d", "1w"))
	if err != nil {
		t.Fatalf("ComputeLabels failed: %v", err)
	}

	if len(rows[0].Returns) != 2 {
		t.Fatalf("expected 2 horizon returns per row, got %d", len(rows[0].Returns))
	}
	v := rows[0].ReturnFor("1w")
	if v == nil || !approxEqual(*v, math.Log(107.0/100.0)) {
		t.Errorf("fwd_ret_1w[0] = %v, want ln(107/100)", v)
	}
	// Horizons resolve independently: 1d still present where 1w is not
	if rows[8].ReturnFor("1d") == nil {
		t.Error("expected 1d label at row 8")
	}
	if rows[8].ReturnFor("1w") != nil {
		t.Error("expected missing 1w label at row 8")
	}
}

func TestComputeLabels_SymbolIsolation(t *testing.T) {
	bars := []*domain.Bar{
		dailyBar("BTC", 0, 100),
		dailyBar("BTC", 1, 110),
		dailyBar("ETH", 1, 50),
		dailyBar("ETH", 2, 60),
	}

	rows, err := ComputeLabels(panel.New(bars), labelConfig(domain.LabelModeCalendar, "1d"))
	if err != nil {
		t.Fatalf("ComputeLabels failed: %v", err)
	}

	// BTC's last bar must not pair with ETH's bar at a later timestamp
	if rows[1].Symbol != "BTC" {
		t.Fatalf("unexpected row order: %s", rows[1].Symbol)
	}
	if rows[1].ReturnFor("1d") != nil {
		t.Error("label crossed a symbol boundary")
	}
}

func TestComputeLabels_NonPositiveCloseMissing(t *testing.T) {
	bars := []*domain.Bar{
		dailyBar("BTC", 0, 100),
		dailyBar("BTC", 1, 0), // degenerate close
	}

	rows, err := ComputeLabels(panel.New(bars), labelConfig(domain.LabelModeBarCount, "1d"))
	if err != nil {
		t.Fatalf("ComputeLabels failed: %v", err)
	}
	if rows[0].ReturnFor("1d") != nil {
		t.Error("expected missing label against non-positive close")
	}
}

func TestComputeLabels_InvalidConfig(t *testing.T) {
	cfg := labelConfig(domain.LabelModeCalendar, "1d")
	cfg.LabelMode = "nearest" // unsupported

	_, err := ComputeLabels(panel.New([]*domain.Bar{dailyBar("BTC", 0, 100)}), cfg)
	if err == nil {
		t.Fatal("expected error for unsupported label mode")
	}
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}
