package pipeline

import "math"

// Round rounds v to the given number of decimal places, halves away from
// zero.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Mean returns the arithmetic mean of values, or NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentage returns value as a percentage of total, rounded to one decimal
// place.
//
// A zero total yields NaN. Callers that may have no data must check for it
// and render an unavailable state.
func Percentage(value, total float64) float64 {
	if total == 0 {
		return math.NaN()
	}
	return Round(value/total*100, 1)
}
