package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"orderflow-lab/internal/domain"
)

// ParseOptions reads an options aggregate table from CSV. Only the time
// column is required; every flow/IV column is optional. An absent volume
// column or empty cell reads as 0 (with total_volume falling back to
// put+call when its column is absent); absent IV/skew/OI columns or empty
// cells read as unknown and propagate as missing downstream.
func ParseOptions(table string, r io.Reader) ([]*domain.OptionsAggregate, *Report, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	h, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}

	timeIdx := h.timeIndex()
	if timeIdx < 0 {
		return nil, nil, &domain.SchemaError{Table: table, Missing: []string{domain.ColTimestamp}}
	}
	symbolIdx, hasSymbol := h[domain.ColSymbol]
	_, hasTotal := h[domain.ColTotalVolume]

	report := &Report{}
	var aggs []*domain.OptionsAggregate
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

		agg := &domain.OptionsAggregate{TimestampMs: ts, Symbol: domain.DefaultSymbol}
		if hasSymbol {
			if s := strings.TrimSpace(record[symbolIdx]); s != "" {
				agg.Symbol = s
			}
		}

		agg.PutVolume = volumeCell(h, record, domain.ColPutVolume)
		agg.CallVolume = volumeCell(h, record, domain.ColCallVolume)
		agg.AtAskVolume = volumeCell(h, record, domain.ColAtAskVolume)
		agg.AtBidVolume = volumeCell(h, record, domain.ColAtBidVolume)
		if hasTotal {
			agg.TotalVolume = volumeCell(h, record, domain.ColTotalVolume)
		} else {
			agg.TotalVolume = agg.PutVolume + agg.CallVolume
		}

		if agg.PutVolume < 0 || agg.CallVolume < 0 || agg.AtAskVolume < 0 ||
			agg.AtBidVolume < 0 || agg.TotalVolume < 0 {
			report.DroppedInvalid++
			continue
		}

		agg.IVATM = levelCell(h, record, domain.ColIVATM)
		agg.IV25DCall = levelCell(h, record, domain.ColIV25DCall)
		agg.IV25DPut = levelCell(h, record, domain.ColIV25DPut)
		agg.OpenInterest = levelCell(h, record, domain.ColOpenInterest)

		aggs = append(aggs, agg)
		report.Rows++
	}

	return aggs, report, nil
}

// volumeCell reads a volume-like column: absent column or blank/bad cell is 0.
func volumeCell(h header, record []string, col string) float64 {
	i, ok := h[col]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
	if err != nil {
		return 0
	}
	return v
}

// levelCell reads an IV/skew/OI column: absent column or blank/bad cell is
// unknown (nil), never zero.
func levelCell(h header, record []string, col string) *float64 {
	i, ok := h[col]
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
	if err != nil {
		return nil
	}
	return &v
}
