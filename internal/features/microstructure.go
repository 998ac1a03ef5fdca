// Package features derives per-symbol feature rows from the bar panel and
// the optional options aggregate table. Every value is strictly causal:
// it depends only on observations at or before its own timestamp.
package features

import (
	"math"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/panel"
	"orderflow-lab/internal/rolling"
)

// ComputeMicrostructure derives orderflow proxies from bars alone.
// Output rows are ordered by (symbol, timestamp), one row per bar.
//
// Formulas per column:
//   - ret_1 = ln(close[t]/close[t-1]), nil on the first bar of a symbol
//   - delta_vol = sign(close-open) * volume, sign(0) = 0
//   - cvd_proxy = cumulative sum of delta_vol from the symbol's first bar
//   - cvd_z_{n} = z-score of cvd_proxy over n bars
//   - bar_imbalance = (up_vol-down_vol)/(up_vol+down_vol), 0 when both zero
//   - vwap = cum(typical*volume)/cum(volume), nil while cum volume is 0
//   - vol_rolling_{n} = rolling sample std of ret_1 over n bars
func ComputeMicrostructure(p *panel.Panel, cfg domain.DatasetConfig) ([]*domain.MicroFeatureRow, error) {
	var result []*domain.MicroFeatureRow
	for _, sym := range p.Symbols() {
		rows, err := microForSymbol(p.Bars(sym), cfg)
		if err != nil {
			return nil, err
		}
		result = append(result, rows...)
	}
	return result, nil
}

// microForSymbol computes all microstructure columns for one symbol group.
// Bars must be sorted by timestamp ascending.
func microForSymbol(bars []*domain.Bar, cfg domain.DatasetConfig) ([]*domain.MicroFeatureRow, error) {
	n := len(bars)
	if n == 0 {
		return nil, nil
	}

	ret1 := make([]*float64, n)
	cvdSeries := make([]*float64, n)
	rows := make([]*domain.MicroFeatureRow, n)

	var cvd, cumPV, cumV float64
	for i, b := range bars {
		row := &domain.MicroFeatureRow{
			TimestampMs: b.TimestampMs,
			Symbol:      b.Symbol,
			Source:      domain.SourceMicrostructure,
		}

		if i > 0 && bars[i-1].Close > 0 && b.Close > 0 {
			r := math.Log(b.Close / bars[i-1].Close)
			ret1[i] = &r
			row.Ret1 = &r
		}

		row.DeltaVol = sign(b.Close-b.Open) * b.Volume
		cvd += row.DeltaVol
		row.CVDProxy = cvd
		c := cvd
		cvdSeries[i] = &c

		var upVol, downVol float64
		if b.Close > b.Open {
			upVol = b.Volume
		} else if b.Close < b.Open {
			downVol = b.Volume
		}
		if denom := upVol + downVol; denom > 0 {
			row.BarImbalance = (upVol - downVol) / denom
		}

		cumPV += b.TypicalPrice() * b.Volume
		cumV += b.Volume
		if cumV > 0 {
			v := cumPV / cumV
			row.VWAP = &v
		}

		rows[i] = row
	}

	for _, w := range cfg.CVDZWindows {
		z, err := rolling.ZScore(cvdSeries, w, rolling.MinObs(w))
		if err != nil {
			return nil, err
		}
		for i := range rows {
			rows[i].CVDZ = append(rows[i].CVDZ, domain.WindowValue{Window: w, Value: z[i]})
		}
	}

	for _, w := range cfg.VolWindows {
		std, err := rolling.Std(ret1, w, rolling.MinObs(w))
		if err != nil {
			return nil, err
		}
		for i := range rows {
			rows[i].VolRolling = append(rows[i].VolRolling, domain.WindowValue{Window: w, Value: std[i]})
		}
	}

	return rows, nil
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
