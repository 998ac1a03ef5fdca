package domain

import "fmt"

// Calculator provenance values carried on every derived row.
const (
	SourceMicrostructure = "microstructure"
	SourceOptionsFlow    = "options_flow"
	SourceLabeling       = "labeling"
)

// WindowValue is one window-parameterized feature value, e.g. vol_rolling_22.
type WindowValue struct {
	Window int      // window length in bars
	Value  *float64 // nil during warm-up or when the input is missing
}

// MicroFeatureRow holds the microstructure features derived from bars for
// one (timestamp, symbol). Every value is a pure function of bars at or
// before TimestampMs. Corresponds to the micro_features table in ClickHouse.
type MicroFeatureRow struct {
	TimestampMs  int64
	Symbol       string
	Source       string   // calculator provenance, SourceMicrostructure
	Ret1         *float64 // ln(close[t]/close[t-1]), nil on the first bar
	DeltaVol     float64  // sign(close-open) * volume, sign(0)=0
	CVDProxy     float64  // running cumulative sum of DeltaVol
	BarImbalance float64  // (up_vol-down_vol)/(up_vol+down_vol), 0 when both zero
	VWAP         *float64 // running VWAP on typical price, nil while cum volume is 0
	VolRolling   []WindowValue // rolling std of Ret1, ordered as configured
	CVDZ         []WindowValue // z-score of CVDProxy, ordered as configured
}

// VolRollingAt returns the realized-vol value for a window, nil if absent.
func (r *MicroFeatureRow) VolRollingAt(window int) *float64 {
	for _, wv := range r.VolRolling {
		if wv.Window == window {
			return wv.Value
		}
	}
	return nil
}

// CVDZAt returns the CVD z-score for a window, nil if absent.
func (r *MicroFeatureRow) CVDZAt(window int) *float64 {
	for _, wv := range r.CVDZ {
		if wv.Window == window {
			return wv.Value
		}
	}
	return nil
}

// MicroFeatureNames returns the statically known output column order for the
// microstructure table (timestamp and symbol excluded).
func MicroFeatureNames(cfg DatasetConfig) []string {
	names := []string{"ret_1", "delta_vol", "cvd_proxy"}
	for _, n := range cfg.CVDZWindows {
		names = append(names, fmt.Sprintf("cvd_z_%d", n))
	}
	names = append(names, "bar_imbalance", "vwap")
	for _, n := range cfg.VolWindows {
		names = append(names, fmt.Sprintf("vol_rolling_%d", n))
	}
	return names
}

// OptionsFeatureRow holds derivatives-flow features for one
// (timestamp, symbol). Corresponds to the options_features table in
// ClickHouse. Nil values mean the input was absent or insufficient.
type OptionsFeatureRow struct {
	TimestampMs     int64
	Symbol          string
	Source          string   // calculator provenance, SourceOptionsFlow
	PCR             *float64 // put/call volume ratio, nil when call volume is 0
	AtAskBias       *float64 // (ask-bid)/total volume, nil when total is 0
	OptVolIntensity *float64 // trailing mean of total volume
	IVATM           *float64 // at-the-money implied vol passthrough
	Skew25d         *float64 // iv_25d_put - iv_25d_call
	DIVATM          *float64 // first difference of IVATM
	DSkew25d        *float64 // first difference of Skew25d
	OpenInterest    *float64 // open interest passthrough
	DOI             *float64 // first difference of OpenInterest
	PCRZ            *float64 // z-score of PCR over the configured window
	AtAskBiasZ      *float64 // z-score of AtAskBias over the configured window
}

// OptionsFeatureNames returns the statically known output column order for
// the options table (timestamp and symbol excluded).
func OptionsFeatureNames(cfg DatasetConfig) []string {
	return []string{
		"pcr", "at_ask_bias", "opt_vol_intensity",
		"iv_atm", "skew_25d", "d_iv_atm", "d_skew_25d",
		"open_interest", "d_oi",
		fmt.Sprintf("pcr_z_%d", cfg.OptZWindow),
		fmt.Sprintf("at_ask_bias_z_%d", cfg.OptZWindow),
	}
}
