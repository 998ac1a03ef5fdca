package domain

// Bar represents one OHLCV observation for a symbol.
// Corresponds to the bars table in PostgreSQL.
type Bar struct {
	TimestampMs int64   // Unix timestamp in milliseconds (UTC)
	Symbol      string  // instrument identifier
	Open        float64 // first trade price of the bar
	High        float64 // highest trade price of the bar
	Low         float64 // lowest trade price of the bar
	Close       float64 // last trade price of the bar
	Volume      float64 // traded volume, non-negative
}

// Required bar columns as they appear in input tables.
const (
	ColTimestamp = "timestamp"
	ColSymbol    = "symbol"
	ColOpen      = "open"
	ColHigh      = "high"
	ColLow       = "low"
	ColClose     = "close"
	ColVolume    = "volume"
)

// RequiredBarColumns lists the price/volume columns every bar table must carry.
var RequiredBarColumns = []string{ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// DefaultSymbol is assigned when an input table has no symbol column.
const DefaultSymbol = "_default"

// TypicalPrice returns (high+low+close)/3, the price used for running VWAP.
func (b *Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3.0
}

// OHLCConsistent reports whether high >= max(open, close) and
// low <= min(open, close). Feature formulas assume this but tolerate
// violations; callers count them at ingestion.
func (b *Bar) OHLCConsistent() bool {
	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	return b.High >= hi && b.Low <= lo
}
