package domain

import (
	"errors"
	"testing"
)

func TestParseHorizon(t *testing.T) {
	tests := []struct {
		in   string
		days int
		ok   bool
	}{
		{"1d", 1, true},
		{"5d", 5, true},
		{"1w", 7, true},
		{"2w", 14, true},
		{"1m", 30, true},
		{"3m", 90, true},
		{"", 0, false},
		{"d", 0, false},
		{"1y", 0, false},   // unsupported unit
		{"0d", 0, false},   // non-positive count
		{"-1d", 0, false},  // negative count
		{"1.5d", 0, false}, // fractional count
	}
	for _, tt := range tests {
		h, err := ParseHorizon(tt.in)
		if tt.ok {
			if err != nil {
				t.Errorf("ParseHorizon(%q): unexpected error %v", tt.in, err)
				continue
			}
			if h.Days != tt.days || h.Raw != tt.in {
				t.Errorf("ParseHorizon(%q) = %+v, want %d days", tt.in, h, tt.days)
			}
		} else {
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("ParseHorizon(%q): expected ConfigError, got %v", tt.in, err)
			}
		}
	}
}

func TestHorizon_Bars(t *testing.T) {
	h := Horizon{Raw: "1w", Days: 7}
	if got := h.Bars(CadenceDaily); got != 7 {
		t.Errorf("1w at daily cadence = %d bars, want 7", got)
	}
	if got := h.Bars(CadenceHourly); got != 168 {
		t.Errorf("1w at hourly cadence = %d bars, want 168", got)
	}
}

func TestHorizon_LabelColumn(t *testing.T) {
	h := Horizon{Raw: "2w", Days: 14}
	if got := h.LabelColumn(); got != "fwd_ret_2w" {
		t.Errorf("label column = %q, want fwd_ret_2w", got)
	}
}

func TestParseCadence(t *testing.T) {
	if _, err := ParseCadence("1d"); err != nil {
		t.Errorf("1d should parse: %v", err)
	}
	if _, err := ParseCadence("1h"); err != nil {
		t.Errorf("1h should parse: %v", err)
	}
	if _, err := ParseCadence("5m"); err == nil {
		t.Error("5m is not a supported cadence")
	}
}

func TestCadence_DefaultVolWindows(t *testing.T) {
	daily := CadenceDaily.DefaultVolWindows()
	if len(daily) != 2 || daily[0] != 5 || daily[1] != 22 {
		t.Errorf("daily defaults = %v, want [5 22]", daily)
	}
	hourly := CadenceHourly.DefaultVolWindows()
	if len(hourly) != 2 || hourly[0] != 24 || hourly[1] != 168 {
		t.Errorf("hourly defaults = %v, want [24 168]", hourly)
	}
}

func TestParseLabelMode(t *testing.T) {
	for _, valid := range []string{"calendar", "barcount"} {
		if _, err := ParseLabelMode(valid); err != nil {
			t.Errorf("%q should parse: %v", valid, err)
		}
	}
	var cfgErr *ConfigError
	if _, err := ParseLabelMode("nearest"); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for unknown mode, got %v", err)
	}
}

func TestDatasetConfig_Validate(t *testing.T) {
	if err := DefaultConfig(CadenceDaily).Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*DatasetConfig)
	}{
		{"bad cadence", func(c *DatasetConfig) { c.Cadence = "5m" }},
		{"bad label mode", func(c *DatasetConfig) { c.LabelMode = "nearest" }},
		{"no horizons", func(c *DatasetConfig) { c.Horizons = nil }},
		{"non-positive horizon", func(c *DatasetConfig) { c.Horizons = []Horizon{{Raw: "0d", Days: 0}} }},
		{"non-positive vol window", func(c *DatasetConfig) { c.VolWindows = []int{5, 0} }},
		{"non-positive cvd window", func(c *DatasetConfig) { c.CVDZWindows = []int{-1} }},
		{"non-positive opt z window", func(c *DatasetConfig) { c.OptZWindow = 0 }},
		{"non-positive intensity window", func(c *DatasetConfig) { c.IntensityWindow = -5 }},
		{"negative fill limit", func(c *DatasetConfig) { c.FillLimit = -1 }},
		{"negative row floor", func(c *DatasetConfig) { c.MinRows = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(CadenceDaily)
			tt.mutate(&cfg)
			var cfgErr *ConfigError
			if err := cfg.Validate(); !errors.As(err, &cfgErr) {
				t.Errorf("expected ConfigError, got %v", err)
			}
		})
	}
}
