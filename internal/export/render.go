package export

import (
	"strconv"
	"strings"

	"orderflow-lab/internal/domain"
)

// optStr renders a possibly-missing value; missing stays an empty cell.
func optStr(v *float64) string {
	if v == nil {
		return ""
	}
	return floatStr(*v)
}

func writeRow(sb *strings.Builder, cells []string) {
	sb.WriteString(strings.Join(cells, ","))
	sb.WriteByte('\n')
}

// RenderMicroCSV renders microstructure feature rows as CSV. Column order
// follows domain.MicroFeatureNames for the configuration.
func RenderMicroCSV(rows []*domain.MicroFeatureRow, cfg domain.DatasetConfig) string {
	var sb strings.Builder
	writeRow(&sb, append([]string{"timestamp_ms", "symbol"}, domain.MicroFeatureNames(cfg)...))

	for _, r := range rows {
		cells := []string{
			strconv.FormatInt(r.TimestampMs, 10),
			r.Symbol,
			optStr(r.Ret1),
			floatStr(r.DeltaVol),
			floatStr(r.CVDProxy),
		}
		for _, n := range cfg.CVDZWindows {
			cells = append(cells, optStr(r.CVDZAt(n)))
		}
		cells = append(cells, floatStr(r.BarImbalance), optStr(r.VWAP))
		for _, n := range cfg.VolWindows {
			cells = append(cells, optStr(r.VolRollingAt(n)))
		}
		writeRow(&sb, cells)
	}
	return sb.String()
}

// RenderOptionsCSV renders options flow feature rows as CSV.
func RenderOptionsCSV(rows []*domain.OptionsFeatureRow, cfg domain.DatasetConfig) string {
	var sb strings.Builder
	writeRow(&sb, append([]string{"timestamp_ms", "symbol"}, domain.OptionsFeatureNames(cfg)...))

	for _, r := range rows {
		writeRow(&sb, append([]string{
			strconv.FormatInt(r.TimestampMs, 10),
			r.Symbol,
		}, optionsCells(r)...))
	}
	return sb.String()
}

func optionsCells(r *domain.OptionsFeatureRow) []string {
	if r == nil {
		return make([]string, 11)
	}
	return []string{
		optStr(r.PCR), optStr(r.AtAskBias), optStr(r.OptVolIntensity),
		optStr(r.IVATM), optStr(r.Skew25d), optStr(r.DIVATM), optStr(r.DSkew25d),
		optStr(r.OpenInterest), optStr(r.DOI),
		optStr(r.PCRZ), optStr(r.AtAskBiasZ),
	}
}

// RenderLabelsCSV renders label rows as CSV, one column per horizon.
func RenderLabelsCSV(rows []*domain.LabelRow, cfg domain.DatasetConfig) string {
	var sb strings.Builder
	writeRow(&sb, append([]string{"timestamp_ms", "symbol"}, domain.LabelColumnNames(cfg)...))

	for _, r := range rows {
		cells := []string{
			strconv.FormatInt(r.TimestampMs, 10),
			r.Symbol,
		}
		for _, h := range cfg.Horizons {
			cells = append(cells, optStr(r.ReturnFor(h.Raw)))
		}
		writeRow(&sb, cells)
	}
	return sb.String()
}

// RenderJoinedCSV renders the final joined panel as CSV: microstructure
// columns, then options columns, then label columns.
func RenderJoinedCSV(rows []*domain.JoinedRow, cfg domain.DatasetConfig) string {
	var sb strings.Builder
	writeRow(&sb, append([]string{"timestamp_ms", "symbol"}, domain.JoinedColumnNames(cfg)...))

	for _, row := range rows {
		m := row.Micro
		cells := []string{
			strconv.FormatInt(row.TimestampMs, 10),
			row.Symbol,
			optStr(m.Ret1),
			floatStr(m.DeltaVol),
			floatStr(m.CVDProxy),
		}
		for _, n := range cfg.CVDZWindows {
			cells = append(cells, optStr(m.CVDZAt(n)))
		}
		cells = append(cells, floatStr(m.BarImbalance), optStr(m.VWAP))
		for _, n := range cfg.VolWindows {
			cells = append(cells, optStr(m.VolRollingAt(n)))
		}

		cells = append(cells, optionsCells(row.Options)...)

		for _, h := range cfg.Horizons {
			if row.Label == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, optStr(row.Label.ReturnFor(h.Raw)))
		}
		writeRow(&sb, cells)
	}
	return sb.String()
}
