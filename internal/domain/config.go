package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Cadence is the fixed sampling interval of a bar panel.
type Cadence string

// Supported cadences.
const (
	CadenceHourly Cadence = "1h"
	CadenceDaily  Cadence = "1d"
)

// ParseCadence validates a cadence string.
func ParseCadence(s string) (Cadence, error) {
	switch Cadence(s) {
	case CadenceHourly, CadenceDaily:
		return Cadence(s), nil
	default:
		return "", &ConfigError{Field: "cadence", Value: s, Reason: "supported cadences are 1h and 1d"}
	}
}

// BarsPerDay returns how many bars one calendar day spans at this cadence.
func (c Cadence) BarsPerDay() int {
	switch c {
	case CadenceHourly:
		return 24
	default:
		return 1
	}
}

// Duration returns the bar interval as a time.Duration.
func (c Cadence) Duration() time.Duration {
	switch c {
	case CadenceHourly:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// DefaultVolWindows returns the realized-volatility windows, in bars, that
// approximate one day/one week (hourly) or one week/one month (daily).
func (c Cadence) DefaultVolWindows() []int {
	switch c {
	case CadenceHourly:
		return []int{24, 168}
	default:
		return []int{5, 22}
	}
}

// Horizon is a forward offset over which a label is measured.
// Calendar-time mode uses Days directly; bar-count mode converts
// Days to bars via the panel cadence.
type Horizon struct {
	Raw  string // original spelling, e.g. "1d", "2w"
	Days int    // calendar days: d=1, w=7, m=30 (approximate month)
}

// ParseHorizon parses "<int><d|w|m>" into a Horizon.
// Returns ConfigError for anything else.
func ParseHorizon(s string) (Horizon, error) {
	if len(s) < 2 {
		return Horizon{}, &ConfigError{Field: "horizon", Value: s, Reason: "expected <int><d|w|m>"}
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return Horizon{}, &ConfigError{Field: "horizon", Value: s, Reason: "expected positive integer count"}
	}
	var perUnit int
	switch s[len(s)-1] {
	case 'd':
		perUnit = 1
	case 'w':
		perUnit = 7
	case 'm':
		perUnit = 30 // approximate monthly horizon
	default:
		return Horizon{}, &ConfigError{Field: "horizon", Value: s, Reason: "unit must be d, w or m"}
	}
	return Horizon{Raw: s, Days: n * perUnit}, nil
}

// Duration returns the horizon as calendar time.
func (h Horizon) Duration() time.Duration {
	return time.Duration(h.Days) * 24 * time.Hour
}

// Bars returns the horizon as a bar count at the given cadence.
func (h Horizon) Bars(c Cadence) int {
	return h.Days * c.BarsPerDay()
}

// LabelColumn returns the output column name for this horizon.
func (h Horizon) LabelColumn() string {
	return "fwd_ret_" + h.Raw
}

// LabelMode selects the forward-alignment strategy for labels.
type LabelMode string

const (
	// LabelModeCalendar pairs each observation with the earliest future
	// observation at or after t + horizon. For irregular or mixed cadence.
	LabelModeCalendar LabelMode = "calendar"

	// LabelModeBarCount converts the horizon to an integer bar count.
	// For strictly regular cadence.
	LabelModeBarCount LabelMode = "barcount"
)

// ParseLabelMode validates a label mode string.
func ParseLabelMode(s string) (LabelMode, error) {
	switch LabelMode(s) {
	case LabelModeCalendar, LabelModeBarCount:
		return LabelMode(s), nil
	default:
		return "", &ConfigError{Field: "label-mode", Value: s, Reason: "supported modes are calendar and barcount"}
	}
}

// DatasetConfig carries every knob the engine consumes. It is constructed
// explicitly by the caller and passed into each component - components never
// read ambient state.
type DatasetConfig struct {
	Cadence     Cadence
	Horizons    []Horizon
	LabelMode   LabelMode
	VolWindows  []int // realized-vol windows in bars; cadence defaults when empty
	CVDZWindows []int // CVD z-score windows in bars
	OptZWindow  int   // z-score window for options flow ratios
	IntensityWindow int // trailing mean window for opt_vol_intensity
	FillLimit   int   // max consecutive rows bounded forward-fill may bridge
	MinRows     int   // per-symbol floor before training-adjacent use
}

// DefaultConfig returns the standard configuration for a cadence:
// horizons 1d/1w/1m, calendar labels, cadence-appropriate vol windows,
// CVD z-scores over 50 and 200 bars, fill bound 2, 200-row floor.
func DefaultConfig(cadence Cadence) DatasetConfig {
	return DatasetConfig{
		Cadence: cadence,
		Horizons: []Horizon{
			{Raw: "1d", Days: 1},
			{Raw: "1w", Days: 7},
			{Raw: "1m", Days: 30},
		},
		LabelMode:       LabelModeCalendar,
		VolWindows:      cadence.DefaultVolWindows(),
		CVDZWindows:     []int{50, 200},
		OptZWindow:      50,
		IntensityWindow: 5,
		FillLimit:       2,
		MinRows:         200,
	}
}

// Validate fails fast on any invalid knob. Returns ConfigError.
func (c DatasetConfig) Validate() error {
	if _, err := ParseCadence(string(c.Cadence)); err != nil {
		return err
	}
	if _, err := ParseLabelMode(string(c.LabelMode)); err != nil {
		return err
	}
	if len(c.Horizons) == 0 {
		return &ConfigError{Field: "horizons", Value: "", Reason: "at least one horizon required"}
	}
	for _, h := range c.Horizons {
		if h.Days <= 0 {
			return &ConfigError{Field: "horizon", Value: h.Raw, Reason: "non-positive horizon"}
		}
	}
	for _, n := range c.VolWindows {
		if n <= 0 {
			return &ConfigError{Field: "vol-windows", Value: fmt.Sprintf("%d", n), Reason: "window length must be positive"}
		}
	}
	for _, n := range c.CVDZWindows {
		if n <= 0 {
			return &ConfigError{Field: "cvd-z-windows", Value: fmt.Sprintf("%d", n), Reason: "window length must be positive"}
		}
	}
	if c.OptZWindow <= 0 {
		return &ConfigError{Field: "opt-z-window", Value: fmt.Sprintf("%d", c.OptZWindow), Reason: "window length must be positive"}
	}
	if c.IntensityWindow <= 0 {
		return &ConfigError{Field: "intensity-window", Value: fmt.Sprintf("%d", c.IntensityWindow), Reason: "window length must be positive"}
	}
	if c.FillLimit < 0 {
		return &ConfigError{Field: "fill-limit", Value: fmt.Sprintf("%d", c.FillLimit), Reason: "fill bound must be >= 0"}
	}
	if c.MinRows < 0 {
		return &ConfigError{Field: "min-rows", Value: fmt.Sprintf("%d", c.MinRows), Reason: "row floor must be >= 0"}
	}
	return nil
}
