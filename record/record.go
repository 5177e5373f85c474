// Package record defines the raw measurement types shared by vitalboard's
// sources, pipeline and panels.
//
// A [Record] is a single externally-sourced data point: one Netlify build with
// its deploy time, or one real-user Core Web Vitals sample. Records arrive in
// batches for a [Period] (one calendar month) and are replaced wholesale when a
// period is fetched again. Nothing in vitalboard mutates a stored record; the
// pipeline decorates copies.
package record

import (
	"fmt"
	"time"
)

// Feed kinds.
const (
	// KindBuilds records are Netlify builds: Context is the deploy context
	// and Value the deploy time in seconds.
	KindBuilds = "builds"

	// KindVitals records are real-user Core Web Vitals samples: Context is
	// the metric name and Value the sample.
	KindVitals = "vitals"
)

// VitalsMetrics lists the Core Web Vitals tracked by the dashboard.
var VitalsMetrics = []string{"lcp", "fid", "cls"}

// Record is a single raw measurement.
type Record struct {
	// Context is the build context ("production", "deploy-preview", "cms")
	// for build records, or the metric name ("lcp", "fid", "cls") for vitals.
	Context string `json:"context"`

	// Value is the measured value: deploy time in seconds for builds, the
	// metric value for vitals.
	Value float64 `json:"value"`

	// Timestamp is when the measurement was taken.
	Timestamp time.Time `json:"timestamp"`

	// Date is the UTC calendar date of Timestamp (YYYY-MM-DD).
	Date string `json:"date,omitempty"`

	// Path is the page path for vitals samples. Empty for builds.
	Path string `json:"path,omitempty"`

	// Seq is the 1-based position of the record within its context once
	// sequenced by the pipeline (the build number). Zero until then.
	Seq int `json:"seq,omitempty"`
}

// WithDate returns a copy of r with Date derived from Timestamp when unset.
func (r Record) WithDate() Record {
	if r.Date == "" && !r.Timestamp.IsZero() {
		r.Date = r.Timestamp.UTC().Format(time.DateOnly)
	}
	return r
}

// Period identifies one calendar month of data.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PeriodOf returns the period containing t (in UTC).
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Key returns the cache key for the period, e.g. "20241" for January 2024.
// The format matches the year/month concatenation used by the dashboard.
func (p Period) Key() string {
	return fmt.Sprintf("%d%d", p.Year, p.Month)
}

// String returns the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Valid reports whether the period names a real month.
func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= 1 && p.Month <= 12
}

// Range returns the half-open UTC interval [start, end) covering the period.
func (p Period) Range() (start, end time.Time) {
	start = time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// YearMonths lists the months of a year that have data.
// It mirrors the shape returned by the periods listing endpoint.
type YearMonths struct {
	Year         int   `json:"year"`
	MonthNumbers []int `json:"month_numbers"`
}

// Latest returns the last listed month of the year, or false if none.
func (y YearMonths) Latest() (Period, bool) {
	if len(y.MonthNumbers) == 0 {
		return Period{}, false
	}
	return Period{Year: y.Year, Month: y.MonthNumbers[len(y.MonthNumbers)-1]}, true
}
