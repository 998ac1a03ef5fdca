package domain

// HorizonReturn is one forward return at a horizon.
type HorizonReturn struct {
	Horizon string   // horizon spelling, e.g. "1d"
	Value   *float64 // nil when no future observation exists within reach
}

// LabelRow holds forward returns per horizon for one (timestamp, symbol).
// A label at t depends only on close[t] and the paired future close -
// never on observations in between. Corresponds to the labels table in
// ClickHouse.
type LabelRow struct {
	TimestampMs int64
	Symbol      string
	Source      string // calculator provenance, SourceLabeling
	Returns     []HorizonReturn // ordered as configured
}

// ReturnFor returns the label value for a horizon, nil if unknown.
func (r *LabelRow) ReturnFor(horizon string) *float64 {
	for _, hr := range r.Returns {
		if hr.Horizon == horizon {
			return hr.Value
		}
	}
	return nil
}

// LabelColumnNames returns the statically known output column order for the
// label table (timestamp and symbol excluded).
func LabelColumnNames(cfg DatasetConfig) []string {
	names := make([]string, 0, len(cfg.Horizons))
	for _, h := range cfg.Horizons {
		names = append(names, h.LabelColumn())
	}
	return names
}
