// Package panel implements the dashboard panels: store subscribers that
// turn raw records into display-ready views.
//
// Each panel is bound to one scope ("builds_", "vitals_", ...). Panels that
// drive the dashboard state ([Periods], [SelectContext]) write derived keys
// back to the store synchronously from their Notify handler. Display panels
// ([MeanBuildTimes], [SuccessfulBuilds], [VitalsSummary], [Histogram]) only
// read the store and publish a [store.View]; their recompute is debounced.
//
// The keys a scope carries are listed in keys.go. Fetch results enter the
// store through [ApplyRecords] and [ApplyPeriods]; user selections through
// [Choose].
package panel
