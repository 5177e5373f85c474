package panel

import (
	"fmt"

	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/record"
)

// Standard returns the panels of a builds or vitals dashboard for one feed,
// in mount order. Periods comes first so the month selection settles before
// the display panels subscribe.
func Standard(feed, scope, kind string, fetcher Fetcher, cfg Config) ([]Panel, error) {
	switch kind {
	case record.KindBuilds:
		return []Panel{
			NewPeriods(feed, scope, fetcher, cfg),
			NewSelectContext(scope, kind, BuildContexts[0], cfg),
			NewMeanBuildTimes(scope, nil, cfg),
			NewSuccessfulBuilds(scope, nil, cfg),
			NewHistogram(scope, cfg),
		}, nil
	case record.KindVitals:
		return []Panel{
			NewPeriods(feed, scope, fetcher, cfg),
			NewSelectContext(scope, kind, record.VitalsMetrics[0], cfg),
			NewVitalsSummary(scope, nil, cfg),
			NewHistogram(scope, cfg),
		}, nil
	default:
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
}

// MountAll mounts panels in order, unmounting those already mounted if one
// fails.
func MountAll(st *store.Store, panels []Panel) error {
	for i, p := range panels {
		if err := p.Mount(st); err != nil {
			UnmountAll(panels[:i])
			return fmt.Errorf("mount %s: %w", p.ID(), err)
		}
	}
	return nil
}

// UnmountAll unmounts panels in reverse order.
func UnmountAll(panels []Panel) {
	for i := len(panels) - 1; i >= 0; i-- {
		panels[i].Unmount()
	}
}
