// Package panel builds the canonical Bar Panel: bars grouped by symbol,
// each group sorted by timestamp with duplicates collapsed. The panel is
// the shared, immutable input to every downstream calculator.
package panel

import (
	"sort"

	"orderflow-lab/internal/domain"
)

// Panel is an ordered, per-symbol view over normalized bars.
// Construct with New; treat as read-only afterwards.
type Panel struct {
	symbols  []string
	bySymbol map[string][]*domain.Bar
	rows     int
}

// New builds a Panel from bars in any order. Input is copied; bars are
// sorted by (symbol, timestamp) and duplicate (symbol, timestamp) pairs
// are collapsed keeping the last record, so each symbol group has strictly
// increasing unique timestamps.
func New(bars []*domain.Bar) *Panel {
	sorted := make([]*domain.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	p := &Panel{bySymbol: make(map[string][]*domain.Bar)}
	for _, b := range sorted {
		group := p.bySymbol[b.Symbol]
		if len(group) > 0 && group[len(group)-1].TimestampMs == b.TimestampMs {
			// LAST record wins for duplicate timestamps
			group[len(group)-1] = b
			p.bySymbol[b.Symbol] = group
			continue
		}
		if len(group) == 0 {
			p.symbols = append(p.symbols, b.Symbol)
		}
		p.bySymbol[b.Symbol] = append(group, b)
		p.rows++
	}
	sort.Strings(p.symbols)
	return p
}

// Symbols returns the symbols present, sorted ascending.
func (p *Panel) Symbols() []string {
	return p.symbols
}

// Bars returns one symbol's bars, sorted by timestamp ascending.
// The returned slice must not be modified.
func (p *Panel) Bars(symbol string) []*domain.Bar {
	return p.bySymbol[symbol]
}

// NumRows returns the total number of bars across all symbols.
func (p *Panel) NumRows() int {
	return p.rows
}

// All returns every bar ordered by (symbol, timestamp).
func (p *Panel) All() []*domain.Bar {
	out := make([]*domain.Bar, 0, p.rows)
	for _, sym := range p.symbols {
		out = append(out, p.bySymbol[sym]...)
	}
	return out
}

// TimeRange returns the min and max timestamps across all symbols.
// ok is false for an empty panel.
func (p *Panel) TimeRange() (minMs, maxMs int64, ok bool) {
	for _, sym := range p.symbols {
		group := p.bySymbol[sym]
		if len(group) == 0 {
			continue
		}
		first, last := group[0].TimestampMs, group[len(group)-1].TimestampMs
		if !ok {
			minMs, maxMs, ok = first, last, true
			continue
		}
		if first < minMs {
			minMs = first
		}
		if last > maxMs {
			maxMs = last
		}
	}
	return minMs, maxMs, ok
}
