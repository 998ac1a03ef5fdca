// Package export writes build outputs to files: the normalized bar panel
// in csv/json/parquet, and the derived feature tables as CSV with
// configuration-dependent headers.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"orderflow-lab/internal/domain"
)

// barRecord is the flat DTO for bar panel export.
type barRecord struct {
	Symbol      string  `json:"symbol" parquet:"symbol"`
	TimestampMs int64   `json:"t" parquet:"t"`
	Open        float64 `json:"o" parquet:"o"`
	High        float64 `json:"h" parquet:"h"`
	Low         float64 `json:"l" parquet:"l"`
	Close       float64 `json:"c" parquet:"c"`
	Volume      float64 `json:"v" parquet:"v"`
}

func toRecords(bars []*domain.Bar) []barRecord {
	records := make([]barRecord, len(bars))
	for i, b := range bars {
		records[i] = barRecord{
			Symbol:      b.Symbol,
			TimestampMs: b.TimestampMs,
			Open:        b.Open,
			High:        b.High,
			Low:         b.Low,
			Close:       b.Close,
			Volume:      b.Volume,
		}
	}
	return records
}

// PanelSaver persists a normalized bar panel to one file.
type PanelSaver interface {
	Save(bars []*domain.Bar, path string) error
	Extension() string
}

// NewPanelSaver creates an implementation for the format (csv, parquet,
// json). Returns nil for unsupported formats.
func NewPanelSaver(format string) PanelSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	case "json":
		return JSONSaver{}
	default:
		return nil
	}
}

// MustPanelSaver is NewPanelSaver but panics on an unsupported format.
func MustPanelSaver(format string) PanelSaver {
	s := NewPanelSaver(format)
	if s == nil {
		panic(fmt.Sprintf("export: unsupported format %q (use: csv, parquet, json)", format))
	}
	return s
}

// CSVSaver saves the panel as CSV (header: symbol,t,o,h,l,c,v).
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(bars []*domain.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"symbol", "t", "o", "h", "l", "c", "v"}); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			b.Symbol,
			strconv.FormatInt(b.TimestampMs, 10),
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			floatStr(b.Volume),
		}); err != nil {
			return err
		}
	}
	return nil
}

// JSONSaver saves the panel as an indented JSON array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(bars []*domain.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(toRecords(bars))
}

// ParquetSaver saves the panel as Parquet.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(bars []*domain.Bar, path string) error {
	return parquet.WriteFile(path, toRecords(bars))
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
