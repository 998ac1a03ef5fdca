package domain

import (
	"fmt"
	"strings"
	"time"
)

// SchemaError reports a missing time axis or required columns in an input
// table. Not retried; surfaced to the caller with the offending names.
type SchemaError struct {
	Table   string   // logical table name, e.g. "bars"
	Missing []string // offending column names
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in table %q: missing column(s) %s",
		e.Table, strings.Join(e.Missing, ", "))
}

// ConfigError reports an invalid configuration value. Fatal: surfaced
// immediately, no partial output.
type ConfigError struct {
	Field  string // configuration field name
	Value  string // offending value as supplied
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s=%q: %s", e.Field, e.Value, e.Reason)
}

// InsufficientDataError reports that a symbol has fewer observations than
// the configured floor for training-adjacent use.
type InsufficientDataError struct {
	Symbol  string
	Rows    int
	MinRows int
	StartMs int64 // first observation, 0 when Rows == 0
	EndMs   int64 // last observation, 0 when Rows == 0
}

func (e *InsufficientDataError) Error() string {
	if e.Rows == 0 {
		return fmt.Sprintf("insufficient data for symbol %q: 0 rows (need %d)", e.Symbol, e.MinRows)
	}
	return fmt.Sprintf("insufficient data for symbol %q: %d rows (need %d) over %s..%s",
		e.Symbol, e.Rows, e.MinRows,
		time.UnixMilli(e.StartMs).UTC().Format(time.RFC3339),
		time.UnixMilli(e.EndMs).UTC().Format(time.RFC3339))
}
