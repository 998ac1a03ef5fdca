// Package join merges the microstructure, options and label feature sets
// into one row per (timestamp, symbol). The join key is the exact pair -
// time-tolerance matching belongs to the label generator's calendar mode,
// not here.
package join

import (
	"orderflow-lab/internal/domain"
)

type key struct {
	symbol      string
	timestampMs int64
}

// columns that bounded forward-fill may bridge: slow-moving IV/skew/OI
// levels and their first differences. Volume and flow columns are never
// filled.
var slowColumns = []struct {
	get func(*domain.OptionsFeatureRow) *float64
	set func(*domain.OptionsFeatureRow, *float64)
}{
	{func(r *domain.OptionsFeatureRow) *float64 { return r.IVATM }, func(r *domain.OptionsFeatureRow, v *float64) { r.IVATM = v }},
	{func(r *domain.OptionsFeatureRow) *float64 { return r.Skew25d }, func(r *domain.OptionsFeatureRow, v *float64) { r.Skew25d = v }},
	{func(r *domain.OptionsFeatureRow) *float64 { return r.DIVATM }, func(r *domain.OptionsFeatureRow, v *float64) { r.DIVATM = v }},
	{func(r *domain.OptionsFeatureRow) *float64 { return r.DSkew25d }, func(r *domain.OptionsFeatureRow, v *float64) { r.DSkew25d = v }},
	{func(r *domain.OptionsFeatureRow) *float64 { return r.OpenInterest }, func(r *domain.OptionsFeatureRow, v *float64) { r.OpenInterest = v }},
	{func(r *domain.OptionsFeatureRow) *float64 { return r.DOI }, func(r *domain.OptionsFeatureRow, v *float64) { r.DOI = v }},
}

// colFill tracks one column's bounded forward-fill state within a symbol.
// Within a run of missing values only the first limit rows are filled; the
// remainder stay missing until a fresh value arrives.
type colFill struct {
	last  *float64
	run   int
	limit int
}

func (f *colFill) apply(v *float64) *float64 {
	if v != nil {
		f.last = v
		f.run = 0
		return v
	}
	f.run++
	if f.last != nil && f.run <= f.limit {
		return f.last
	}
	return nil
}

// Join combines the three feature sets into the final panel. The
// microstructure rows are authoritative for row existence: the output has
// exactly one row per micro row, in the same order. Options and label
// blocks are left-joined by (timestamp, symbol) and may stay nil.
// Bounded forward-fill (cfg.FillLimit) is applied to slow options columns,
// independently per symbol, never across a symbol boundary.
func Join(
	micro []*domain.MicroFeatureRow,
	options []*domain.OptionsFeatureRow,
	labels []*domain.LabelRow,
	cfg domain.DatasetConfig,
) []*domain.JoinedRow {
	optionsByKey := make(map[key]*domain.OptionsFeatureRow, len(options))
	for _, r := range options {
		optionsByKey[key{r.Symbol, r.TimestampMs}] = r
	}
	labelsByKey := make(map[key]*domain.LabelRow, len(labels))
	for _, r := range labels {
		labelsByKey[key{r.Symbol, r.TimestampMs}] = r
	}

	out := make([]*domain.JoinedRow, 0, len(micro))

	var fills []*colFill
	currentSymbol := ""
	for _, m := range micro {
		if m.Symbol != currentSymbol || fills == nil {
			// fill state never crosses a symbol boundary
			currentSymbol = m.Symbol
			fills = make([]*colFill, len(slowColumns))
			for i := range fills {
				fills[i] = &colFill{limit: cfg.FillLimit}
			}
		}

		row := &domain.JoinedRow{
			TimestampMs: m.TimestampMs,
			Symbol:      m.Symbol,
			Micro:       m,
			Label:       labelsByKey[key{m.Symbol, m.TimestampMs}],
		}

		base := optionsByKey[key{m.Symbol, m.TimestampMs}]
		row.Options = fillOptions(base, m, fills)

		out = append(out, row)
	}

	return out
}

// fillOptions applies per-column bounded forward-fill over the slow columns
// and returns the options block for one output row. Returns nil when there
// is no source row and nothing was filled.
func fillOptions(base *domain.OptionsFeatureRow, m *domain.MicroFeatureRow, fills []*colFill) *domain.OptionsFeatureRow {
	var filled *domain.OptionsFeatureRow
	if base != nil {
		cp := *base
		filled = &cp
	} else {
		filled = &domain.OptionsFeatureRow{
			TimestampMs: m.TimestampMs,
			Symbol:      m.Symbol,
			Source:      domain.SourceOptionsFlow,
		}
	}

	any := base != nil
	for i, col := range slowColumns {
		var v *float64
		if base != nil {
			v = col.get(base)
		}
		fv := fills[i].apply(v)
		col.set(filled, fv)
		if fv != nil {
			any = true
		}
	}

	if !any {
		return nil
	}
	return filled
}
