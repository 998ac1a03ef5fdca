package domain

// JoinedRow is one row of the final feature/label matrix, keyed by
// (timestamp, symbol). The microstructure panel is authoritative for row
// existence: every observed bar produces exactly one JoinedRow. Options and
// Label blocks are left-joined and may be nil.
type JoinedRow struct {
	TimestampMs int64
	Symbol      string
	Micro       *MicroFeatureRow   // never nil
	Options     *OptionsFeatureRow // nil when no options row and no fill applied
	Label       *LabelRow          // nil when no label row exists
}

// JoinedColumnNames returns the statically known output column order for the
// joined panel (timestamp and symbol excluded): microstructure columns,
// then options columns, then label columns.
func JoinedColumnNames(cfg DatasetConfig) []string {
	names := MicroFeatureNames(cfg)
	names = append(names, OptionsFeatureNames(cfg)...)
	names = append(names, LabelColumnNames(cfg)...)
	return names
}
