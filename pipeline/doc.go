// Package pipeline turns raw measurement records into display-ready
// aggregates.
//
// Every function in this package is pure: identical inputs always produce
// identical outputs and nothing is cached or mutated. Functions may be called
// from any store subscriber's notify handler without coordination.
//
// The building blocks are generic over the item type:
//
//   - [Percentile] and [InPercentile]: linear-interpolated percentile filter
//   - [GroupBy]: count, sum and mean per key in first-seen order
//   - [Bucket]: equal-width histogram bins over [0, max]
//   - [Percentage], [Mean], [Round]: aggregate arithmetic
//
// KPI thresholds live in [Thresholds] and [Classify]. The dashboard views
// built from these ([Sequence], [Daily], [Frequency], [Pages],
// [Distribute], [Histogram]) operate on [record.Record] values.
//
// # Error Policy
//
// Programmer errors (a NaN percentile, a non-positive bucket count) return an
// error. Legitimate empty data returns empty results. Division by zero in
// aggregate arithmetic returns NaN rather than a masked zero so callers can
// render an explicit "N/A".
package pipeline
