package domain

// OptionsAggregate represents pre-aggregated options flow for one
// (timestamp, symbol). Produced by an external aggregation stage;
// consumed read-only. Corresponds to the options_agg table in PostgreSQL.
//
// Volume fields are plain float64: an absent column or empty cell means 0.
// IV/skew/OI fields are *float64: absence is a first-class state (nil) and
// propagates through derived features - defaulting a volatility or open
// interest level to zero would fabricate a signal.
type OptionsAggregate struct {
	TimestampMs int64  // Unix timestamp in milliseconds (UTC)
	Symbol      string // instrument identifier

	PutVolume   float64 // put contracts traded
	CallVolume  float64 // call contracts traded
	AtAskVolume float64 // volume executed at the ask
	AtBidVolume float64 // volume executed at the bid
	TotalVolume float64 // total contracts traded; put+call when column absent

	IVATM        *float64 // at-the-money implied vol, nil if unknown
	IV25DCall    *float64 // 25-delta call implied vol, nil if unknown
	IV25DPut     *float64 // 25-delta put implied vol, nil if unknown
	OpenInterest *float64 // open interest level, nil if unknown
}

// Optional options-aggregate columns as they appear in input tables.
const (
	ColPutVolume    = "put_volume"
	ColCallVolume   = "call_volume"
	ColAtAskVolume  = "at_ask_volume"
	ColAtBidVolume  = "at_bid_volume"
	ColTotalVolume  = "total_volume"
	ColIVATM        = "iv_atm"
	ColIV25DCall    = "iv_25d_call"
	ColIV25DPut     = "iv_25d_put"
	ColOpenInterest = "open_interest"
)
