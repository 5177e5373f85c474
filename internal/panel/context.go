package panel

import (
	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/pipeline"
	"github.com/jpalmerr/vitalboard/record"
)

// SelectContext derives selectedContextData from the selected month.
//
// New month data resets the selection to the default context. A change of
// context or frame recomputes the derived data: numbered builds for a
// builds scope, or the daily, frequency or pages view of a vitals metric.
type SelectContext struct {
	base
	recordKind     string
	defaultContext string
}

// NewSelectContext creates a [SelectContext] panel. kind is
// record.KindBuilds or record.KindVitals.
func NewSelectContext(scope, kind, defaultContext string, cfg Config) *SelectContext {
	return &SelectContext{
		base:           newBase("context", scope, cfg),
		recordKind:     kind,
		defaultContext: defaultContext,
	}
}

// Mount implements [Panel].
func (c *SelectContext) Mount(st *store.Store) error {
	if err := c.mount(st, c); err != nil {
		return err
	}
	if _, ok := st.Get(c.scope, KeySelectedData); ok {
		c.Notify(KeySelectedData, c.scope)
	}
	return nil
}

// Unmount implements [Panel].
func (c *SelectContext) Unmount() { c.unmount(c) }

// Notify implements [store.Notifier].
func (c *SelectContext) Notify(key, scope string) {
	if scope != c.scope {
		return
	}
	switch key {
	case KeySelectedData, KeyFrameLoaded:
		if c.recordKind == record.KindVitals {
			if _, ok := c.st.Get(c.scope, KeyFrameSelected); !ok {
				c.st.Set(c.scope, KeyFrameSelected, FrameDaily)
			}
		}
		c.st.Set(c.scope, KeyContextSelected, c.defaultContext)
	case KeyContextSelected, KeyFrameSelected:
		data := c.derive()
		c.st.Set(c.scope, KeySelectedContextData, data)
		c.publish(false, data)
	}
}

// derive computes the ContextData for the current selection.
func (c *SelectContext) derive() ContextData {
	records, _ := store.Lookup[[]record.Record](c.st, c.scope, KeySelectedData)
	context, ok := store.Lookup[string](c.st, c.scope, KeyContextSelected)
	if !ok {
		context = c.defaultContext
	}

	data := ContextData{Kind: c.recordKind, Context: context}
	if c.recordKind == record.KindBuilds {
		data.Builds = pipeline.Sequence(records, context)
		return data
	}

	frame, ok := store.Lookup[string](c.st, c.scope, KeyFrameSelected)
	if !ok {
		frame = FrameDaily
	}
	data.Frame = frame

	var err error
	switch frame {
	case FrameFrequency:
		data.Frequency, err = pipeline.Frequency(records, context, c.cfg.Percentile)
		if data.Frequency == nil {
			data.Frequency = []float64{}
		}
	case FramePages:
		data.Pages, err = pipeline.Pages(records, context, c.cfg.Percentile)
		if data.Pages == nil {
			data.Pages = []pipeline.PageGroup{}
		}
	default:
		data.Daily, err = pipeline.Daily(records, context, c.cfg.Percentile)
	}
	if err != nil {
		c.cfg.Logger.Warn("context data derivation failed",
			"scope", c.scope,
			"context", context,
			"frame", frame,
			"error", err,
		)
	}
	return data
}
