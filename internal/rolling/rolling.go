// Package rolling provides trailing-window aggregate operators over a single
// symbol's series. Missing observations are nil and are skipped inside the
// window; positions with fewer than the minimum observation count yield nil.
// A series must never mix observations across symbols.
package rolling

import (
	"fmt"
	"math"

	"orderflow-lab/internal/domain"
)

// MinObs returns the default minimum-observations threshold for a window:
// max(2, window/3).
func MinObs(window int) int {
	m := window / 3
	if m < 2 {
		m = 2
	}
	return m
}

func checkWindow(window int) error {
	if window <= 0 {
		return &domain.ConfigError{
			Field:  "window",
			Value:  fmt.Sprintf("%d", window),
			Reason: "window length must be positive",
		}
	}
	return nil
}

// windowStats collects count, mean and sum of squared deviations over the
// trailing window ending at index i, inclusive.
func windowStats(series []*float64, i, window int) (count int, mean, ssd float64) {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	var sum float64
	for k := start; k <= i; k++ {
		if series[k] == nil {
			continue
		}
		sum += *series[k]
		count++
	}
	if count == 0 {
		return 0, 0, 0
	}
	mean = sum / float64(count)
	for k := start; k <= i; k++ {
		if series[k] == nil {
			continue
		}
		d := *series[k] - mean
		ssd += d * d
	}
	return count, mean, ssd
}

// Mean returns the trailing-window mean at each index, nil where fewer than
// minObs non-missing observations are available.
func Mean(series []*float64, window, minObs int) ([]*float64, error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	out := make([]*float64, len(series))
	for i := range series {
		count, mean, _ := windowStats(series, i, window)
		if count < minObs {
			continue
		}
		m := mean
		out[i] = &m
	}
	return out, nil
}

// Std returns the trailing-window sample standard deviation at each index,
// nil where fewer than minObs (or fewer than 2) observations are available.
func Std(series []*float64, window, minObs int) ([]*float64, error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	if minObs < 2 {
		minObs = 2
	}
	out := make([]*float64, len(series))
	for i := range series {
		count, _, ssd := windowStats(series, i, window)
		if count < minObs {
			continue
		}
		s := math.Sqrt(ssd / float64(count-1))
		out[i] = &s
	}
	return out, nil
}

// ZScore returns (value - mean) / std at each index, where mean and std are
// trailing-window aggregates and std is the population deviation. The result
// is nil when the value is missing, the window is below minObs, or the
// deviation is zero - a degenerate window yields missing, never infinity.
func ZScore(series []*float64, window, minObs int) ([]*float64, error) {
	if err := checkWindow(window); err != nil {
		return nil, err
	}
	out := make([]*float64, len(series))
	for i := range series {
		if series[i] == nil {
			continue
		}
		count, mean, ssd := windowStats(series, i, window)
		if count < minObs {
			continue
		}
		std := math.Sqrt(ssd / float64(count))
		if std == 0 {
			continue
		}
		z := (*series[i] - mean) / std
		out[i] = &z
	}
	return out, nil
}
