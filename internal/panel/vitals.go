package panel

import (
	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/pipeline"
	"github.com/jpalmerr/vitalboard/record"
)

// BarView is one stacked bar segment. Percentages are nil when there were
// no samples.
type BarView struct {
	Rating     string   `json:"rating"`
	Percentage *float64 `json:"percentage"`
	Cumulative *float64 `json:"cumulative"`
}

// MetricSummary is the p75 summary of one Core Web Vital.
type MetricSummary struct {
	Metric           string    `json:"metric"`
	Label            string    `json:"label"`
	Count            int       `json:"count"`
	Mean             *float64  `json:"mean"`
	Display          string    `json:"display"`
	Unit             string    `json:"unit,omitempty"`
	Rating           string    `json:"rating"`
	Alert            string    `json:"alert"`
	Good             int       `json:"good"`
	NeedsImprovement int       `json:"needs_improvement"`
	Poor             int       `json:"poor"`
	Bars             []BarView `json:"bars"`
}

// VitalsSummary publishes, per metric, the mean of the samples within the
// configured percentile, its rating, and the good / needs-improvement /
// poor distribution.
type VitalsSummary struct {
	base
	metrics []string
}

// NewVitalsSummary creates a [VitalsSummary] panel. A nil metrics uses
// record.VitalsMetrics.
func NewVitalsSummary(scope string, metrics []string, cfg Config) *VitalsSummary {
	if metrics == nil {
		metrics = record.VitalsMetrics
	}
	return &VitalsSummary{base: newBase("vitals-summary", scope, cfg), metrics: metrics}
}

// Mount implements [Panel].
func (v *VitalsSummary) Mount(st *store.Store) error {
	if err := v.mount(st, v); err != nil {
		return err
	}
	if _, ok := st.Get(v.scope, KeySelectedData); ok {
		v.debounce.Trigger(v.refresh)
	}
	return nil
}

// Unmount implements [Panel].
func (v *VitalsSummary) Unmount() { v.unmount(v) }

// Notify implements [store.Notifier].
func (v *VitalsSummary) Notify(key, scope string) {
	if scope != v.scope || (key != KeySelectedData && key != KeyFetching) {
		return
	}
	v.debounce.Trigger(v.refresh)
}

func (v *VitalsSummary) refresh() {
	if v.fetching() {
		v.publish(true, nil)
		return
	}
	records, ok := store.Lookup[[]record.Record](v.st, v.scope, KeySelectedData)
	if !ok {
		return
	}

	out := make([]MetricSummary, 0, len(v.metrics))
	for _, metric := range v.metrics {
		summary, err := SummarizeMetric(records, metric, v.cfg.Percentile)
		if err != nil {
			v.cfg.Logger.Warn("vitals summary failed", "scope", v.scope, "metric", metric, "error", err)
			continue
		}
		out = append(out, summary)
	}
	v.publish(false, out)
}

// SummarizeMetric filters metric's samples to the p-th percentile and
// summarises them.
func SummarizeMetric(records []record.Record, metric string, p float64) (MetricSummary, error) {
	samples, err := pipeline.MetricsInPercentile(pipeline.Filter(records, metric), pipeline.ValueField, p)
	if err != nil {
		return MetricSummary{}, err
	}

	mean := pipeline.Round(pipeline.Mean(pipeline.Values(samples)), 4)
	rating := pipeline.ClassifyContext(metric, mean)
	out := MetricSummary{
		Metric:  metric,
		Label:   Label(metric),
		Count:   len(samples),
		Mean:    finite(mean),
		Display: display(mean),
		Unit:    pipeline.Unit(metric),
		Rating:  rating.String(),
		Alert:   rating.Alert(),
	}

	t, ok := pipeline.Thresholds(metric)
	if !ok {
		return out, nil
	}
	dist := pipeline.Distribute(samples, t)
	out.Good, out.NeedsImprovement, out.Poor = dist.Good, dist.NeedsImprovement, dist.Poor
	out.Bars = make([]BarView, len(dist.Bars))
	for i, b := range dist.Bars {
		out.Bars[i] = BarView{
			Rating:     b.Rating.String(),
			Percentage: finite(b.Percentage),
			Cumulative: finite(b.Cumulative),
		}
	}
	return out, nil
}
