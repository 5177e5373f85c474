package panel

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/pipeline"
	"github.com/jpalmerr/vitalboard/record"
)

// Panel is a dashboard panel bound to one scope.
//
// Mount and Unmount must be called from the goroutine that owns the store
// (the session loop), as must every write a panel makes.
type Panel interface {
	store.Notifier

	// ID identifies the panel's view, e.g. "builds_histogram".
	ID() string

	// Mount subscribes the panel and catches it up with the current state.
	Mount(st *store.Store) error

	// Unmount unsubscribes the panel and withdraws its view. After Unmount
	// the panel receives no further notifications.
	Unmount()
}

// Fetcher requests a month of records for a feed. Request must not block;
// the records arrive later through [ApplyRecords].
type Fetcher interface {
	Request(feed string, period record.Period) error
}

// ViewObserver is notified of every published view.
type ViewObserver interface {
	ViewPublished(kind string)
}

// Config holds what every panel needs.
type Config struct {
	// Views receives published views. Required.
	Views store.Views

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Debounce delays display panel recomputes. Zero recomputes
	// synchronously inside Notify.
	Debounce time.Duration

	// Percentile is the vitals outlier cut-off. Defaults to
	// pipeline.DefaultPercentile.
	Percentile float64

	// HistogramBuckets defaults to pipeline.DefaultHistogramBuckets.
	HistogramBuckets int

	// Observer, if set, counts published views.
	Observer ViewObserver
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Percentile == 0 {
		c.Percentile = pipeline.DefaultPercentile
	}
	if c.HistogramBuckets == 0 {
		c.HistogramBuckets = pipeline.DefaultHistogramBuckets
	}
	return c
}

// base carries the plumbing shared by all panels.
type base struct {
	kind     string
	scope    string
	cfg      Config
	st       *store.Store
	debounce *Debouncer
}

func newBase(kind, scope string, cfg Config) base {
	cfg = cfg.withDefaults()
	return base{
		kind:     kind,
		scope:    scope,
		cfg:      cfg,
		debounce: NewDebouncer(cfg.Debounce),
	}
}

// ID returns scope + kind.
func (b *base) ID() string {
	return b.scope + b.kind
}

func (b *base) mount(st *store.Store, self Panel) error {
	b.st = st
	// a remounted panel was stopped by its last unmount
	b.debounce.Start()
	return st.Subscribe(self)
}

func (b *base) unmount(self Panel) {
	if b.st != nil {
		b.st.Unsubscribe(self)
	}
	b.debounce.Stop()
	if b.cfg.Views != nil {
		b.cfg.Views.Remove(b.ID())
	}
}

func (b *base) publish(loading bool, data any) {
	if b.cfg.Views == nil {
		return
	}
	b.cfg.Views.Update(store.View{
		ID:      b.ID(),
		Scope:   b.scope,
		Kind:    b.kind,
		Loading: loading,
		Data:    data,
	})
	if b.cfg.Observer != nil {
		b.cfg.Observer.ViewPublished(b.kind)
	}
}

func (b *base) fetching() bool {
	v, _ := store.Lookup[bool](b.st, b.scope, KeyFetching)
	return v
}

// finite returns nil for NaN and infinities so views stay JSON-encodable.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// display formats v for text output, "N/A" when there is no value.
func display(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
