package panel

import (
	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/pipeline"
	"github.com/jpalmerr/vitalboard/record"
)

// ContextMean is the mean build time of one context.
type ContextMean struct {
	Context string   `json:"context"`
	Label   string   `json:"label"`
	Count   int      `json:"count"`
	Mean    *float64 `json:"mean"`
	Display string   `json:"display"`
	Unit    string   `json:"unit,omitempty"`
	Rating  string   `json:"rating"`
	Alert   string   `json:"alert"`
}

// MeanBuildTimes publishes the mean deploy time and its rating per build
// context for the selected month.
type MeanBuildTimes struct {
	base
	contexts []string
}

// NewMeanBuildTimes creates a [MeanBuildTimes] panel. A nil contexts uses
// [BuildContexts].
func NewMeanBuildTimes(scope string, contexts []string, cfg Config) *MeanBuildTimes {
	if contexts == nil {
		contexts = BuildContexts
	}
	return &MeanBuildTimes{base: newBase("mean-build-times", scope, cfg), contexts: contexts}
}

// Mount implements [Panel].
func (m *MeanBuildTimes) Mount(st *store.Store) error {
	if err := m.mount(st, m); err != nil {
		return err
	}
	if _, ok := st.Get(m.scope, KeySelectedData); ok {
		m.debounce.Trigger(m.refresh)
	}
	return nil
}

// Unmount implements [Panel].
func (m *MeanBuildTimes) Unmount() { m.unmount(m) }

// Notify implements [store.Notifier].
func (m *MeanBuildTimes) Notify(key, scope string) {
	if scope != m.scope || (key != KeySelectedData && key != KeyFetching) {
		return
	}
	m.debounce.Trigger(m.refresh)
}

func (m *MeanBuildTimes) refresh() {
	if m.fetching() {
		m.publish(true, nil)
		return
	}
	records, ok := store.Lookup[[]record.Record](m.st, m.scope, KeySelectedData)
	if !ok {
		return
	}
	m.publish(false, MeanBuildTimesOf(records, m.contexts))
}

// MeanBuildTimesOf computes the per-context means.
func MeanBuildTimesOf(records []record.Record, contexts []string) []ContextMean {
	out := make([]ContextMean, len(contexts))
	for i, ctx := range contexts {
		s := pipeline.Summarize(records, ctx)
		out[i] = ContextMean{
			Context: ctx,
			Label:   Label(ctx),
			Count:   s.Count,
			Mean:    finite(s.Mean),
			Display: display(s.Mean),
			Unit:    s.Unit,
			Rating:  s.Rating.String(),
			Alert:   s.Rating.Alert(),
		}
	}
	return out
}

// ContextCount is the number of builds of one context.
type ContextCount struct {
	Context string `json:"context"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
}

// SuccessfulBuilds publishes the number of builds per context for the
// selected month.
type SuccessfulBuilds struct {
	base
	contexts []string
}

// NewSuccessfulBuilds creates a [SuccessfulBuilds] panel. A nil contexts
// uses [BuildContexts].
func NewSuccessfulBuilds(scope string, contexts []string, cfg Config) *SuccessfulBuilds {
	if contexts == nil {
		contexts = BuildContexts
	}
	return &SuccessfulBuilds{base: newBase("successful-builds", scope, cfg), contexts: contexts}
}

// Mount implements [Panel].
func (s *SuccessfulBuilds) Mount(st *store.Store) error {
	if err := s.mount(st, s); err != nil {
		return err
	}
	if _, ok := st.Get(s.scope, KeySelectedData); ok {
		s.debounce.Trigger(s.refresh)
	}
	return nil
}

// Unmount implements [Panel].
func (s *SuccessfulBuilds) Unmount() { s.unmount(s) }

// Notify implements [store.Notifier].
func (s *SuccessfulBuilds) Notify(key, scope string) {
	if scope != s.scope || (key != KeySelectedData && key != KeyFetching) {
		return
	}
	s.debounce.Trigger(s.refresh)
}

func (s *SuccessfulBuilds) refresh() {
	if s.fetching() {
		s.publish(true, nil)
		return
	}
	records, ok := store.Lookup[[]record.Record](s.st, s.scope, KeySelectedData)
	if !ok {
		return
	}

	groups := pipeline.GroupBy(records,
		func(r record.Record) string { return r.Context },
		func(r record.Record) float64 { return r.Value },
	)
	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		counts[g.Key] = g.Count
	}

	out := make([]ContextCount, len(s.contexts))
	for i, ctx := range s.contexts {
		out[i] = ContextCount{Context: ctx, Label: Label(ctx), Count: counts[ctx]}
	}
	s.publish(false, out)
}
