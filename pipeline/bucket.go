package pipeline

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBucketCount is returned by [Bucket] for a count below 1.
	ErrInvalidBucketCount = errors.New("bucket count must be at least 1")

	// ErrInvalidDomain is returned by [Bucket] for a negative or non-finite max.
	ErrInvalidDomain = errors.New("bucket domain max must be a finite non-negative number")
)

// Bin is one histogram bucket covering [Lower, Upper).
// The last bin also holds Upper and everything above it.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Bucket partitions values into n equal-width bins over [0, max] and counts
// membership.
//
// A value equal to or above max is counted in the last bin; a negative value
// is counted in the first. NaN values are ignored.
func Bucket(values []float64, max float64, n int) ([]Bin, error) {
	if n < 1 {
		return nil, ErrInvalidBucketCount
	}
	if max < 0 || math.IsNaN(max) || math.IsInf(max, 0) {
		return nil, ErrInvalidDomain
	}

	width := max / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lower = float64(i) * width
		bins[i].Upper = float64(i+1) * width
	}
	bins[n-1].Upper = max

	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		bins[binIndex(v, max, width, n)].Count++
	}
	return bins, nil
}

func binIndex(v, max, width float64, n int) int {
	switch {
	case v >= max:
		return n - 1
	case v < 0:
		return 0
	}
	idx := int(math.Floor(v / width))
	if idx >= n {
		// float rounding just below max
		return n - 1
	}
	return idx
}
