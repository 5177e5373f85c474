package pipeline

import "math"

// Threshold is the KPI pair used to rate a measurement.
type Threshold struct {
	// Success is the highest value still rated good.
	Success float64 `json:"success"`

	// Fail is the lowest value rated poor.
	Fail float64 `json:"fail"`
}

// thresholds maps context labels to their KPI lines. Build contexts are in
// seconds, lcp and fid in milliseconds, cls is unitless.
var thresholds = map[string]Threshold{
	"production":     {Success: 40, Fail: 50},
	"deploy-preview": {Success: 45, Fail: 55},
	"cms":            {Success: 35, Fail: 45},
	"lcp":            {Success: 2500, Fail: 4000},
	"fid":            {Success: 100, Fail: 300},
	"cls":            {Success: 0.1, Fail: 0.25},
}

var units = map[string]string{
	"production":     "s",
	"deploy-preview": "s",
	"cms":            "s",
	"lcp":            "ms",
	"fid":            "ms",
	"cls":            "",
}

// Thresholds returns the KPI threshold for a context label ("production",
// "lcp", ...). The boolean is false for unknown contexts.
func Thresholds(context string) (Threshold, bool) {
	t, ok := thresholds[context]
	return t, ok
}

// Unit returns the measurement unit suffix for a context, or "" if the
// context is unitless or unknown.
func Unit(context string) string {
	return units[context]
}

// MinAxis returns the smallest upper bound a chart axis for the context
// should use, so that both KPI lines are always visible. Unknown contexts
// return 0.
func MinAxis(context string) float64 {
	t, ok := thresholds[context]
	if !ok {
		return 0
	}
	return t.Fail + (t.Fail-t.Success)/2
}

// Rating is the classification of a measurement against a [Threshold].
type Rating string

const (
	// RatingGood means the value is at or below the success line.
	RatingGood Rating = "good"

	// RatingNeedsImprovement means the value is between the two lines.
	RatingNeedsImprovement Rating = "needs-improvement"

	// RatingPoor means the value is at or above the fail line.
	RatingPoor Rating = "poor"

	// RatingUnavailable means there was no value to rate (NaN).
	RatingUnavailable Rating = "unavailable"
)

// String implements fmt.Stringer.
func (r Rating) String() string {
	return string(r)
}

// Alert returns the alert class the dashboard renders for the rating:
// "success", "warning", "error" or "unavailable".
func (r Rating) Alert() string {
	switch r {
	case RatingGood:
		return "success"
	case RatingNeedsImprovement:
		return "warning"
	case RatingPoor:
		return "error"
	default:
		return "unavailable"
	}
}

// Classify rates value against t.
//
// The boundaries are inclusive on both lines: value <= Success is good,
// value >= Fail is poor, anything between needs improvement. NaN is
// unavailable.
func Classify(value float64, t Threshold) Rating {
	switch {
	case math.IsNaN(value):
		return RatingUnavailable
	case value <= t.Success:
		return RatingGood
	case value >= t.Fail:
		return RatingPoor
	default:
		return RatingNeedsImprovement
	}
}

// ClassifyContext rates value using the thresholds for context. Unknown
// contexts are unavailable.
func ClassifyContext(context string, value float64) Rating {
	t, ok := Thresholds(context)
	if !ok {
		return RatingUnavailable
	}
	return Classify(value, t)
}
