package pipeline

import (
	"errors"
	"math"
	"slices"

	"github.com/jpalmerr/vitalboard/record"
)

// ErrInvalidPercentile is returned when the requested percentile is NaN or
// infinite.
var ErrInvalidPercentile = errors.New("percentile must be a finite number")

// Field reads the numeric field of a record that a percentile applies to.
type Field func(record.Record) float64

// ValueField is the [Field] reading [record.Record.Value].
var ValueField Field = func(r record.Record) float64 { return r.Value }

// Percentile returns the linear-interpolated p-th percentile of values.
//
// Values are sorted ascending and the percentile sits at index (n-1)*p. A
// fractional index interpolates between the floor and ceiling elements,
// weighted by the fractional part. p <= 0 yields the minimum and p >= 1 the
// maximum. An empty input yields 0.
//
// The input slice is not modified.
func Percentile(values []float64, p float64) (float64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, ErrInvalidPercentile
	}
	if len(values) == 0 {
		return 0, nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	if p <= 0 {
		return sorted[0], nil
	}
	if p >= 1 {
		return sorted[len(sorted)-1], nil
	}

	idx := float64(len(sorted)-1) * p
	lo := math.Floor(idx)
	hi := math.Ceil(idx)
	if lo == hi {
		return sorted[int(lo)], nil
	}

	frac := idx - lo
	return sorted[int(lo)] + (sorted[int(hi)]-sorted[int(lo)])*frac, nil
}

// InPercentile returns the items whose value is at or below the p-th
// percentile of all item values. Input order is preserved.
//
// An empty input yields an empty (non-nil) result.
func InPercentile[T any](items []T, value func(T) float64, p float64) ([]T, error) {
	values := make([]float64, len(items))
	for i, item := range items {
		values[i] = value(item)
	}

	threshold, err := Percentile(values, p)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(items))
	for i, item := range items {
		if values[i] <= threshold {
			result = append(result, item)
		}
	}
	return result, nil
}

// MetricsInPercentile filters records to those whose field is within the
// p-th percentile.
//
// Example:
//
//	// keep the fastest 75% of samples
//	p75, err := pipeline.MetricsInPercentile(records, pipeline.ValueField, 0.75)
func MetricsInPercentile(records []record.Record, field Field, p float64) ([]record.Record, error) {
	return InPercentile(records, field, p)
}
