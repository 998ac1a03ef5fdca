package ingest

import (
	"errors"
	"strings"
	"testing"

	"orderflow-lab/internal/domain"
)

func TestParseBars_FullTable(t *testing.T) {
	input := `timestamp,symbol,open,high,low,close,volume
2024-01-01,BTC,100,101,99,100.5,10
2024-01-02,BTC,100.5,102,100,101,12
`
	bars, report, err := ParseBars("bars", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if report.Rows != 2 || len(bars) != 2 {
		t.Fatalf("expected 2 rows, got report=%+v len=%d", report, len(bars))
	}
	b := bars[0]
	if b.Symbol != "BTC" || b.Open != 100 || b.High != 101 || b.Low != 99 || b.Close != 100.5 || b.Volume != 10 {
		t.Errorf("unexpected first bar: %+v", b)
	}
	// 2024-01-01T00:00:00Z
	if b.TimestampMs != 1704067200000 {
		t.Errorf("unexpected timestamp: %d", b.TimestampMs)
	}
}

func TestParseBars_SchemaErrorListsAllMissing(t *testing.T) {
	input := "open,close\n100,101\n"
	_, _, err := ParseBars("bars", strings.NewReader(input))

	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	want := []string{"timestamp", "high", "low", "volume"}
	if len(schemaErr.Missing) != len(want) {
		t.Fatalf("expected missing %v, got %v", want, schemaErr.Missing)
	}
	for i, col := range want {
		if schemaErr.Missing[i] != col {
			t.Errorf("missing[%d]: got %q, want %q", i, schemaErr.Missing[i], col)
		}
	}
}

func TestParseBars_SymbolColumnOptional(t *testing.T) {
	input := "timestamp,open,high,low,close,volume\n2024-01-01,100,101,99,100,10\n"
	bars, _, err := ParseBars("bars", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bars[0].Symbol != domain.DefaultSymbol {
		t.Errorf("expected default symbol, got %q", bars[0].Symbol)
	}
}

func TestParseBars_BadRowsDroppedAndCounted(t *testing.T) {
	input := `timestamp,open,high,low,close,volume
not-a-time,100,101,99,100,10
2024-01-02,0,101,99,100,10
2024-01-03,abc,101,99,100,10
2024-01-04,100,101,99,100,-5
2024-01-05,100,101,99,100,10
`
	bars, report, err := ParseBars("bars", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if report.DroppedBadTime != 1 {
		t.Errorf("expected 1 bad-time drop, got %d", report.DroppedBadTime)
	}
	// non-positive open, unparseable open, negative volume
	if report.DroppedInvalid != 3 {
		t.Errorf("expected 3 invalid drops, got %d", report.DroppedInvalid)
	}
	if report.Rows != 1 || len(bars) != 1 {
		t.Errorf("expected 1 surviving row, got %d", len(bars))
	}
}

func TestParseBars_OHLCViolationKeptAndCounted(t *testing.T) {
	// high below low: row survives but is flagged
	input := "timestamp,open,high,low,close,volume\n2024-01-01,100,99,101,100,10\n"
	bars, report, err := ParseBars("bars", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("inconsistent rows are kept, got %d", len(bars))
	}
	if report.OHLCViolations != 1 {
		t.Errorf("expected 1 OHLC violation, got %d", report.OHLCViolations)
	}
}

func TestParseBars_TimeColumnAliases(t *testing.T) {
	for _, alias := range []string{"timestamp", "time", "datetime", "date"} {
		input := alias + ",open,high,low,close,volume\n2024-01-01,100,101,99,100,10\n"
		bars, _, err := ParseBars("bars", strings.NewReader(input))
		if err != nil {
			t.Fatalf("alias %q: %v", alias, err)
		}
		if len(bars) != 1 {
			t.Errorf("alias %q: expected 1 row", alias)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"2024-01-01T00:00:00Z", 1704067200000, true},
		{"2024-01-01 00:00:00", 1704067200000, true},
		{"2024-01-01", 1704067200000, true},
		{"1704067200", 1704067200000, true},    // epoch seconds
		{"1704067200000", 1704067200000, true}, // epoch milliseconds
		{"999999999999", 999999999999000, true},
		{"", 0, false},
		{"not-a-time", 0, false},
		{"-5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseTimestamp(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseOptions_TotalVolumeFallback(t *testing.T) {
	input := "timestamp,put_volume,call_volume\n2024-01-01,30,60\n"
	aggs, _, err := ParseOptions("options", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if aggs[0].TotalVolume != 90 {
		t.Errorf("expected total fallback put+call=90, got %v", aggs[0].TotalVolume)
	}
}

func TestParseOptions_ExplicitTotalWins(t *testing.T) {
	input := "timestamp,put_volume,call_volume,total_volume\n2024-01-01,30,60,100\n"
	aggs, _, err := ParseOptions("options", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if aggs[0].TotalVolume != 100 {
		t.Errorf("expected explicit total 100, got %v", aggs[0].TotalVolume)
	}
}

func TestParseOptions_LevelCellsReadAsUnknown(t *testing.T) {
	input := "timestamp,iv_atm,open_interest\n2024-01-01,,1000\n2024-01-02,0.55,\n"
	aggs, _, err := ParseOptions("options", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if aggs[0].IVATM != nil {
		t.Error("blank iv_atm cell must read as unknown")
	}
	if aggs[0].OpenInterest == nil || *aggs[0].OpenInterest != 1000 {
		t.Error("expected open_interest 1000")
	}
	if aggs[1].IVATM == nil || *aggs[1].IVATM != 0.55 {
		t.Error("expected iv_atm 0.55")
	}
	if aggs[1].OpenInterest != nil {
		t.Error("blank open_interest cell must read as unknown")
	}
	// iv_25d columns absent entirely
	if aggs[0].IV25DCall != nil || aggs[0].IV25DPut != nil {
		t.Error("absent IV columns must read as unknown")
	}
}

func TestParseOptions_NegativeVolumeDropped(t *testing.T) {
	input := "timestamp,put_volume,call_volume\n2024-01-01,-5,60\n2024-01-02,30,60\n"
	aggs, report, err := ParseOptions("options", strings.NewReader(input))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if report.DroppedInvalid != 1 || len(aggs) != 1 {
		t.Errorf("expected negative-volume row dropped, report=%+v len=%d", report, len(aggs))
	}
}

func TestParseOptions_TimeColumnRequired(t *testing.T) {
	input := "put_volume,call_volume\n30,60\n"
	_, _, err := ParseOptions("options", strings.NewReader(input))

	var schemaErr *domain.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}
