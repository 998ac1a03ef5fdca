// Package ingest parses raw bar and options-aggregate tables into domain
// records. Schema problems (no time axis, missing OHLCV columns) are
// surfaced as SchemaError; individually bad rows are dropped and counted,
// never fatal.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"orderflow-lab/internal/domain"
)

// Report summarizes what normalization did to one input table.
type Report struct {
	Rows           int // rows successfully parsed
	DroppedBadTime int // rows dropped for unparseable timestamps
	DroppedInvalid int // rows dropped for invalid prices/volumes
	OHLCViolations int // rows kept despite high/low inconsistency
}

// Accepted spellings for the time axis.
var timeColumnAliases = []string{"timestamp", "time", "datetime", "date"}

var validate = validator.New()

// rawBar is one bar record as read from the input, validated before it
// becomes a domain.Bar.
type rawBar struct {
	Open   float64 `validate:"gt=0"`
	High   float64 `validate:"gt=0"`
	Low    float64 `validate:"gt=0"`
	Close  float64 `validate:"gt=0"`
	Volume float64 `validate:"gte=0"`
}

// header maps column names to record indices.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	record, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(record))
	for i, name := range record {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h, nil
}

// timeIndex locates the time axis, or -1 when none of the aliases match.
func (h header) timeIndex() int {
	for _, alias := range timeColumnAliases {
		if i, ok := h[alias]; ok {
			return i
		}
	}
	return -1
}

// ParseBars reads a bar table from CSV. The header must contain a time
// column (timestamp/time/datetime/date) and the full OHLCV set; a symbol
// column is optional and defaults to domain.DefaultSymbol. Rows with
// unparseable timestamps or invalid prices are dropped and counted.
func ParseBars(table string, r io.Reader) ([]*domain.Bar, *Report, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	h, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}

	timeIdx := h.timeIndex()
	var missing []string
	if timeIdx < 0 {
		missing = append(missing, domain.ColTimestamp)
	}
	for _, col := range domain.RequiredBarColumns {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &domain.SchemaError{Table: table, Missing: missing}
	}

	symbolIdx, hasSymbol := h[domain.ColSymbol]

	report := &Report{}
	var bars []*domain.Bar
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s record: %w", table, err)
		}

		ts, ok := ParseTimestamp(record[timeIdx])
		if !ok {
			report.DroppedBadTime++
			continue
		}

		raw := rawBar{}
		fields := []struct {
			col string
			dst *float64
		}{
			{domain.ColOpen, &raw.Open},
			{domain.ColHigh, &raw.High},
			{domain.ColLow, &raw.Low},
			{domain.ColClose, &raw.Close},
			{domain.ColVolume, &raw.Volume},
		}
		parsed := true
		for _, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[h[f.col]]), 64)
			if err != nil {
				parsed = false
				break
			}
			*f.dst = v
		}
		if !parsed || validate.Struct(raw) != nil {
			report.DroppedInvalid++
			continue
		}

		symbol := domain.DefaultSymbol
		if hasSymbol {
			if s := strings.TrimSpace(record[symbolIdx]); s != "" {
				symbol = s
			}
		}

		bar := &domain.Bar{
			TimestampMs: ts,
			Symbol:      symbol,
			Open:        raw.Open,
			High:        raw.High,
			Low:         raw.Low,
			Close:       raw.Close,
			Volume:      raw.Volume,
		}
		if !bar.OHLCConsistent() {
			report.OHLCViolations++
		}
		bars = append(bars, bar)
		report.Rows++
	}

	return bars, report, nil
}

// ParseTimestamp parses one timestamp cell to Unix milliseconds UTC.
// Accepts RFC3339(Nano), "2006-01-02 15:04:05", "2006-01-02", and epoch
// seconds or milliseconds.
func ParseTimestamp(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli(), true
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		// heuristically epoch seconds below ~Nov 2286, millis above
		if n < 1_000_000_000_000 {
			return n * 1000, true
		}
		return n, true
	}

	return 0, false
}
