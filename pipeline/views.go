package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jpalmerr/vitalboard/record"
)

// DefaultPercentile is the percentile the vitals views filter to.
const DefaultPercentile = 0.75

// DefaultHistogramBuckets is the bucket count used by the histogram view.
const DefaultHistogramBuckets = 20

// Filter returns the records whose Context equals context.
func Filter(records []record.Record, context string) []record.Record {
	result := make([]record.Record, 0)
	for _, r := range records {
		if r.Context == context {
			result = append(result, r)
		}
	}
	return result
}

// Values returns the Value of each record.
func Values(records []record.Record) []float64 {
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Value
	}
	return values
}

// Sequence returns the records of one context numbered 1..n in input order.
// The returned records are copies; the input is not modified.
//
// With no records for the context, a single zero-valued placeholder is
// returned so line charts always have a point to draw.
func Sequence(records []record.Record, context string) []record.Record {
	matched := Filter(records, context)
	if len(matched) == 0 {
		return []record.Record{{Context: context}}
	}
	for i := range matched {
		matched[i].Seq = i + 1
	}
	return matched
}

// DailyPoint is the mean of one metric on one day.
type DailyPoint struct {
	Date  string  `json:"date"`
	Day   int     `json:"day"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Daily filters the metric's samples to the p-th percentile and returns the
// mean per calendar day in first-seen order.
//
// With no samples a single zero point is returned.
func Daily(records []record.Record, metric string, p float64) ([]DailyPoint, error) {
	samples, err := MetricsInPercentile(Filter(records, metric), ValueField, p)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return []DailyPoint{{}}, nil
	}

	groups := GroupBy(samples,
		func(r record.Record) string { return r.WithDate().Date },
		func(r record.Record) float64 { return r.Value },
	)

	points := make([]DailyPoint, len(groups))
	for i, g := range groups {
		points[i] = DailyPoint{
			Date:  g.Key,
			Day:   dayOfMonth(g.Key),
			Value: g.Mean,
			Count: g.Count,
		}
	}
	return points, nil
}

// dayOfMonth parses a YYYY-MM-DD date, returning 0 if it is malformed.
func dayOfMonth(date string) int {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return 0
	}
	return t.Day()
}

// Frequency returns the metric's sample values within the p-th percentile.
func Frequency(records []record.Record, metric string, p float64) ([]float64, error) {
	samples, err := MetricsInPercentile(Filter(records, metric), ValueField, p)
	if err != nil {
		return nil, err
	}
	return Values(samples), nil
}

// PageGroup is the mean of one metric on one page.
type PageGroup struct {
	Path  string  `json:"path"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

// Pages returns the pages whose p-th percentile mean for the metric is above
// the metric's success line, worst first.
//
// Returns an error if the metric has no known threshold.
func Pages(records []record.Record, metric string, p float64) ([]PageGroup, error) {
	t, ok := Thresholds(metric)
	if !ok {
		return nil, fmt.Errorf("no threshold for metric %q", metric)
	}

	samples, err := MetricsInPercentile(Filter(records, metric), ValueField, p)
	if err != nil {
		return nil, err
	}

	groups := GroupBy(samples,
		func(r record.Record) string { return r.Path },
		func(r record.Record) float64 { return r.Value },
	)

	failing := make([]PageGroup, 0, len(groups))
	for _, g := range groups {
		if g.Mean > t.Success {
			failing = append(failing, PageGroup{Path: g.Key, Value: g.Mean, Count: g.Count})
		}
	}

	// stable keeps first-seen order between equal means
	sort.SliceStable(failing, func(i, j int) bool {
		return failing[i].Value > failing[j].Value
	})
	return failing, nil
}

// Bar is one segment of a single stacked bar.
type Bar struct {
	Rating     Rating  `json:"rating"`
	Percentage float64 `json:"percentage"`
	Cumulative float64 `json:"cumulative"`
}

// Distribution counts how many records fall into each rating.
type Distribution struct {
	Count            int   `json:"count"`
	Good             int   `json:"good"`
	NeedsImprovement int   `json:"needs_improvement"`
	Poor             int   `json:"poor"`
	Bars             []Bar `json:"bars"`
}

// Distribute rates every record against t and returns the counts plus the
// stacked bar segments (good, needs-improvement, poor) with cumulative
// offsets.
//
// With no records every percentage is NaN.
func Distribute(records []record.Record, t Threshold) Distribution {
	var d Distribution
	for _, r := range records {
		d.Count++
		switch Classify(r.Value, t) {
		case RatingGood:
			d.Good++
		case RatingPoor:
			d.Poor++
		case RatingNeedsImprovement:
			d.NeedsImprovement++
		}
	}

	total := float64(d.Count)
	good := Percentage(float64(d.Good), total)
	needs := Percentage(float64(d.NeedsImprovement), total)
	poor := Percentage(float64(d.Poor), total)

	d.Bars = []Bar{
		{Rating: RatingGood, Percentage: good, Cumulative: 0},
		{Rating: RatingNeedsImprovement, Percentage: needs, Cumulative: good},
		{Rating: RatingPoor, Percentage: poor, Cumulative: good + needs},
	}
	return d
}

// Summary is the mean of a context's records and its rating.
type Summary struct {
	Context string  `json:"context"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	Rating  Rating  `json:"rating"`
	Unit    string  `json:"unit,omitempty"`
}

// Summarize returns the mean (rounded to 4 places) and rating of the
// records for context. With no records Mean is NaN and the rating is
// unavailable.
func Summarize(records []record.Record, context string) Summary {
	matched := Filter(records, context)
	mean := Round(Mean(Values(matched)), 4)
	return Summary{
		Context: context,
		Count:   len(matched),
		Mean:    mean,
		Rating:  ClassifyContext(context, mean),
		Unit:    Unit(context),
	}
}

// Histogram buckets the values over [0, max(MinAxis(context), max value)].
func Histogram(values []float64, context string, n int) ([]Bin, error) {
	upper := MinAxis(context)
	for _, v := range values {
		if !math.IsNaN(v) && v > upper {
			upper = v
		}
	}
	return Bucket(values, upper, n)
}
