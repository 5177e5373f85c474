package panel

import (
	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/pipeline"
)

// HistogramView is the published state of a [Histogram] panel.
type HistogramView struct {
	Context string         `json:"context"`
	Unit    string         `json:"unit,omitempty"`
	Success *float64       `json:"success"`
	Fail    *float64       `json:"fail"`
	Bins    []pipeline.Bin `json:"bins"`
}

// Histogram buckets the selected context data.
type Histogram struct {
	base
}

// NewHistogram creates a [Histogram] panel.
func NewHistogram(scope string, cfg Config) *Histogram {
	return &Histogram{base: newBase("histogram", scope, cfg)}
}

// Mount implements [Panel]. Mounting marks the scope's frame as loaded.
func (h *Histogram) Mount(st *store.Store) error {
	if err := h.mount(st, h); err != nil {
		return err
	}
	st.Set(h.scope, KeyFrameLoaded, true)
	if _, ok := st.Get(h.scope, KeySelectedContextData); ok {
		h.debounce.Trigger(h.refresh)
	}
	return nil
}

// Unmount implements [Panel].
func (h *Histogram) Unmount() { h.unmount(h) }

// Notify implements [store.Notifier].
func (h *Histogram) Notify(key, scope string) {
	if scope != h.scope || (key != KeySelectedContextData && key != KeyFetching) {
		return
	}
	h.debounce.Trigger(h.refresh)
}

func (h *Histogram) refresh() {
	if h.fetching() {
		h.publish(true, nil)
		return
	}
	data, ok := store.Lookup[ContextData](h.st, h.scope, KeySelectedContextData)
	if !ok {
		return
	}

	bins, err := pipeline.Histogram(data.Values(), data.Context, h.cfg.HistogramBuckets)
	if err != nil {
		h.cfg.Logger.Warn("histogram failed", "scope", h.scope, "context", data.Context, "error", err)
		return
	}

	view := HistogramView{Context: data.Context, Unit: pipeline.Unit(data.Context), Bins: bins}
	if t, ok := pipeline.Thresholds(data.Context); ok {
		view.Success, view.Fail = finite(t.Success), finite(t.Fail)
	}
	h.publish(false, view)
}
