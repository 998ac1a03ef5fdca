package features

import (
	"sort"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/rolling"
)

// ComputeOptionsFlow derives derivatives-flow proxies from the options
// aggregate table. An empty input yields an empty feature set, not an error.
// Output rows are ordered by (symbol, timestamp), one row per aggregate.
//
// Ratio columns become nil on a zero denominator; IV/skew/OI columns
// propagate nil from their inputs.
func ComputeOptionsFlow(aggs []*domain.OptionsAggregate, cfg domain.DatasetConfig) ([]*domain.OptionsFeatureRow, error) {
	if len(aggs) == 0 {
		return nil, nil
	}

	sorted := make([]*domain.OptionsAggregate, len(aggs))
	copy(sorted, aggs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	var result []*domain.OptionsFeatureRow
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].Symbol != sorted[start].Symbol {
			rows, err := optionsForSymbol(sorted[start:i], cfg)
			if err != nil {
				return nil, err
			}
			result = append(result, rows...)
			start = i
		}
	}
	return result, nil
}

// optionsForSymbol computes all options-flow columns for one symbol group.
// Aggregates must be sorted by timestamp ascending.
func optionsForSymbol(aggs []*domain.OptionsAggregate, cfg domain.DatasetConfig) ([]*domain.OptionsFeatureRow, error) {
	n := len(aggs)
	rows := make([]*domain.OptionsFeatureRow, n)

	pcr := make([]*float64, n)
	bias := make([]*float64, n)
	totalVol := make([]*float64, n)

	for i, a := range aggs {
		row := &domain.OptionsFeatureRow{
			TimestampMs:  a.TimestampMs,
			Symbol:       a.Symbol,
			Source:       domain.SourceOptionsFlow,
			IVATM:        a.IVATM,
			OpenInterest: a.OpenInterest,
		}

		if a.CallVolume != 0 {
			v := a.PutVolume / a.CallVolume
			pcr[i] = &v
			row.PCR = &v
		}
		if a.TotalVolume != 0 {
			v := (a.AtAskVolume - a.AtBidVolume) / a.TotalVolume
			bias[i] = &v
			row.AtAskBias = &v
		}
		tv := a.TotalVolume
		totalVol[i] = &tv

		if a.IV25DPut != nil && a.IV25DCall != nil {
			s := *a.IV25DPut - *a.IV25DCall
			row.Skew25d = &s
		}

		if i > 0 {
			prev := rows[i-1]
			row.DIVATM = diff(row.IVATM, prev.IVATM)
			row.DSkew25d = diff(row.Skew25d, prev.Skew25d)
			row.DOI = diff(row.OpenInterest, prev.OpenInterest)
		}

		rows[i] = row
	}

	intensity, err := rolling.Mean(totalVol, cfg.IntensityWindow, 1)
	if err != nil {
		return nil, err
	}
	pcrZ, err := rolling.ZScore(pcr, cfg.OptZWindow, rolling.MinObs(cfg.OptZWindow))
	if err != nil {
		return nil, err
	}
	biasZ, err := rolling.ZScore(bias, cfg.OptZWindow, rolling.MinObs(cfg.OptZWindow))
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].OptVolIntensity = intensity[i]
		rows[i].PCRZ = pcrZ[i]
		rows[i].AtAskBiasZ = biasZ[i]
	}

	return rows, nil
}

// diff returns cur - prev, nil when either side is unknown.
func diff(cur, prev *float64) *float64 {
	if cur == nil || prev == nil {
		return nil
	}
	d := *cur - *prev
	return &d
}
