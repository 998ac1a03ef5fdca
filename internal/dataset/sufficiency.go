package dataset

import (
	"fmt"
	"sort"
	"time"

	"orderflow-lab/internal/domain"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks plus the typed floor violations.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string

	// FloorViolations holds one entry per symbol below the row floor,
	// in symbol order.
	FloorViolations []*domain.InsufficientDataError
}

// CheckSufficiency validates the raw bar panel before a build. Runs on the
// bars as loaded, before deduplication, so the duplicate check sees what the
// panel normalizer would silently resolve.
func CheckSufficiency(bars []*domain.Bar, cfg domain.DatasetConfig) *SufficiencyResult {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 3),
		AllPass: true,
	}

	floor, violations := checkRowFloor(bars, cfg)
	result.Checks = append(result.Checks, floor)
	result.FloorViolations = violations
	if !floor.Pass {
		result.AllPass = false
		for _, v := range violations {
			result.Errors = append(result.Errors, v.Error())
		}
	}

	dup, dupErrors := checkDuplicateKeys(bars)
	result.Checks = append(result.Checks, dup)
	if !dup.Pass {
		result.AllPass = false
		result.Errors = append(result.Errors, dupErrors...)
	}

	coverage := checkCoverage(bars, cfg)
	result.Checks = append(result.Checks, coverage)
	if !coverage.Pass {
		result.AllPass = false
	}

	return result
}

// checkRowFloor: every symbol has at least cfg.MinRows observations.
func checkRowFloor(bars []*domain.Bar, cfg domain.DatasetConfig) (SufficiencyCheck, []*domain.InsufficientDataError) {
	counts := make(map[string]int)
	firstMs := make(map[string]int64)
	lastMs := make(map[string]int64)
	for _, b := range bars {
		counts[b.Symbol]++
		if counts[b.Symbol] == 1 || b.TimestampMs < firstMs[b.Symbol] {
			firstMs[b.Symbol] = b.TimestampMs
		}
		if b.TimestampMs > lastMs[b.Symbol] {
			lastMs[b.Symbol] = b.TimestampMs
		}
	}

	symbols := make([]string, 0, len(counts))
	for sym := range counts {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	minRows := -1
	var violations []*domain.InsufficientDataError
	for _, sym := range symbols {
		n := counts[sym]
		if minRows < 0 || n < minRows {
			minRows = n
		}
		if n < cfg.MinRows {
			violations = append(violations, &domain.InsufficientDataError{
				Symbol:  sym,
				Rows:    n,
				MinRows: cfg.MinRows,
				StartMs: firstMs[sym],
				EndMs:   lastMs[sym],
			})
		}
	}

	actual := "no symbols"
	if minRows >= 0 {
		actual = fmt.Sprintf("min %d rows across %d symbols", minRows, len(symbols))
	}
	return SufficiencyCheck{
		Name:      "Per-symbol row floor",
		Threshold: fmt.Sprintf(">= %d rows", cfg.MinRows),
		Actual:    actual,
		Pass:      len(violations) == 0 && len(symbols) > 0,
	}, violations
}

// checkDuplicateKeys: duplicate (symbol, timestamp) pairs == 0.
func checkDuplicateKeys(bars []*domain.Bar) (SufficiencyCheck, []string) {
	type key struct {
		symbol string
		tsMs   int64
	}
	seen := make(map[key]int, len(bars))
	for _, b := range bars {
		seen[key{b.Symbol, b.TimestampMs}]++
	}

	var errs []string
	duplicates := 0
	for k, n := range seen {
		if n > 1 {
			duplicates += n - 1
			errs = append(errs, fmt.Sprintf("duplicate bar key (%s, %s): %d occurrences",
				k.symbol, time.UnixMilli(k.tsMs).UTC().Format(time.RFC3339), n))
		}
	}
	sort.Strings(errs)

	return SufficiencyCheck{
		Name:      "Duplicate (symbol, timestamp) pairs",
		Threshold: "== 0",
		Actual:    fmt.Sprintf("%d", duplicates),
		Pass:      duplicates == 0,
	}, errs
}

// checkCoverage: the panel spans at least the longest label horizon, else no
// forward return can ever resolve.
func checkCoverage(bars []*domain.Bar, cfg domain.DatasetConfig) SufficiencyCheck {
	var longest domain.Horizon
	for _, h := range cfg.Horizons {
		if h.Days > longest.Days {
			longest = h
		}
	}
	threshold := fmt.Sprintf(">= %d days (longest horizon %s)", longest.Days, longest.Raw)

	if len(bars) == 0 {
		return SufficiencyCheck{
			Name:      "Time coverage",
			Threshold: threshold,
			Actual:    "0 days",
			Pass:      false,
		}
	}

	minMs, maxMs := bars[0].TimestampMs, bars[0].TimestampMs
	for _, b := range bars {
		if b.TimestampMs < minMs {
			minMs = b.TimestampMs
		}
		if b.TimestampMs > maxMs {
			maxMs = b.TimestampMs
		}
	}
	spanDays := float64(maxMs-minMs) / float64(24*time.Hour/time.Millisecond)

	return SufficiencyCheck{
		Name:      "Time coverage",
		Threshold: threshold,
		Actual:    fmt.Sprintf("%.1f days", spanDays),
		Pass:      spanDays >= float64(longest.Days),
	}
}
