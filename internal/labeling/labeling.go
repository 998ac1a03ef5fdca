// Package labeling computes forward returns per horizon without lookahead
// bias. Two alignment modes share one horizon vocabulary: calendar-time for
// irregular series and bar-count for regular cadence.
//
// Labels are natural-log forward returns, ln(close_future/close_t), in both
// modes; a single output table never mixes conventions.
package labeling

import (
	"math"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/panel"
)

// ComputeLabels derives one label row per bar, ordered by
// (symbol, timestamp). The future side of every pairing is strictly at or
// after t + horizon; no observation between t and the pairing target is
// consulted.
func ComputeLabels(p *panel.Panel, cfg domain.DatasetConfig) ([]*domain.LabelRow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var result []*domain.LabelRow
	for _, sym := range p.Symbols() {
		result = append(result, labelsForSymbol(p.Bars(sym), cfg)...)
	}
	return result, nil
}

// labelsForSymbol computes all horizons for one symbol group.
// Bars must be sorted by timestamp ascending.
func labelsForSymbol(bars []*domain.Bar, cfg domain.DatasetConfig) []*domain.LabelRow {
	n := len(bars)
	if n == 0 {
		return nil
	}

	rows := make([]*domain.LabelRow, n)
	for i, b := range bars {
		rows[i] = &domain.LabelRow{
			TimestampMs: b.TimestampMs,
			Symbol:      b.Symbol,
			Source:      domain.SourceLabeling,
		}
	}

	for _, h := range cfg.Horizons {
		var values []*float64
		if cfg.LabelMode == domain.LabelModeBarCount {
			values = barCountReturns(bars, h.Bars(cfg.Cadence))
		} else {
			values = calendarReturns(bars, h.Duration().Milliseconds())
		}
		for i := range rows {
			rows[i].Returns = append(rows[i].Returns, domain.HorizonReturn{
				Horizon: h.Raw,
				Value:   values[i],
			})
		}
	}

	return rows
}

// calendarReturns pairs each bar with the earliest bar at or after
// t + horizonMs via an ordered merge. No interpolation: the match is the
// nearest not-earlier future observation, or missing when none exists.
func calendarReturns(bars []*domain.Bar, horizonMs int64) []*float64 {
	n := len(bars)
	out := make([]*float64, n)

	j := 0
	for i := 0; i < n; i++ {
		target := bars[i].TimestampMs + horizonMs
		if j < i {
			j = i
		}
		for j < n && bars[j].TimestampMs < target {
			j++
		}
		if j == n {
			continue
		}
		out[i] = logReturn(bars[i].Close, bars[j].Close)
	}
	return out
}

// barCountReturns pairs bar i with bar i+count. The last count bars of the
// symbol have no future bar and stay missing.
func barCountReturns(bars []*domain.Bar, count int) []*float64 {
	n := len(bars)
	out := make([]*float64, n)
	for i := 0; i+count < n; i++ {
		out[i] = logReturn(bars[i].Close, bars[i+count].Close)
	}
	return out
}

func logReturn(from, to float64) *float64 {
	if from <= 0 || to <= 0 {
		return nil
	}
	r := math.Log(to / from)
	return &r
}
