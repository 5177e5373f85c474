package vitalboard

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/vitalboard/internal/store"
)

// DispatchMode selects how nested store writes are delivered to panels.
type DispatchMode = store.DispatchMode

const (
	// BreadthFirst delivers every change to all panels before any change
	// written in reaction to it. This is the default.
	BreadthFirst = store.BreadthFirst

	// DepthFirst delivers a nested change immediately, before the outer
	// change reaches the remaining panels.
	DepthFirst = store.DepthFirst
)

// boardConfig holds mutable state during Board construction.
type boardConfig struct {
	title            string
	feeds            []Feed
	pollInterval     time.Duration
	port             int
	maxConcurrency   int
	logger           *slog.Logger
	fetchCallbacks   []func(FetchEvent)
	dispatch         DispatchMode
	debounce         time.Duration
	percentile       float64
	histogramBuckets int
	cachePath        string
	registry         *prometheus.Registry
}

// Option configures a [Board] during construction. Options return an error
// if validation fails.
type Option func(*boardConfig) error

// WithFeed adds a [Feed]. At least one feed must be configured for [New] to
// succeed.
func WithFeed(f Feed) Option {
	return func(cfg *boardConfig) error {
		cfg.feeds = append(cfg.feeds, f)
		return nil
	}
}

// WithFeeds adds several feeds, e.g. the result of [NewFeedGrid].
func WithFeeds(feeds ...Feed) Option {
	return func(cfg *boardConfig) error {
		cfg.feeds = append(cfg.feeds, feeds...)
		return nil
	}
}

// WithPollInterval sets how often each feed's periods listing and watched
// month are refreshed. Feeds may override it with [WithInterval].
// Defaults to 15 minutes.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server. Defaults to 8080.
func WithPort(port int) Option {
	return func(cfg *boardConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency limits how many fetches run at once. Defaults to 4.
func WithMaxConcurrency(n int) Option {
	return func(cfg *boardConfig) error {
		if n <= 0 {
			return errors.New("max concurrency must be positive")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithLogger sets the [slog.Logger]. If not specified, [slog.Default] is
// used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *boardConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithFetchCallback registers a function called after every fetch, once
// its result has been handed to the store.
//
// Callbacks are invoked synchronously, in registration order, from a single
// goroutine and must not block. Panics are recovered and logged. Nil
// callbacks are ignored.
func WithFetchCallback(cb func(FetchEvent)) Option {
	return func(cfg *boardConfig) error {
		if cb == nil {
			return nil
		}
		cfg.fetchCallbacks = append(cfg.fetchCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "vitalboard".
func WithTitle(title string) Option {
	return func(cfg *boardConfig) error {
		cfg.title = title
		return nil
	}
}

// WithDispatch sets the store's [DispatchMode]. Defaults to [BreadthFirst].
func WithDispatch(mode DispatchMode) Option {
	return func(cfg *boardConfig) error {
		if mode != BreadthFirst && mode != DepthFirst {
			return errors.New("unknown dispatch mode")
		}
		cfg.dispatch = mode
		return nil
	}
}

// WithDebounce sets how long display panels wait for changes to settle
// before recomputing. Zero recomputes on every change. Defaults to 250ms.
func WithDebounce(d time.Duration) Option {
	return func(cfg *boardConfig) error {
		if d < 0 {
			return errors.New("debounce cannot be negative")
		}
		cfg.debounce = d
		return nil
	}
}

// WithPercentile sets the vitals outlier cut-off in (0, 1]. Defaults to
// 0.75.
func WithPercentile(p float64) Option {
	return func(cfg *boardConfig) error {
		if math.IsNaN(p) || p <= 0 || p > 1 {
			return errors.New("percentile must be in (0, 1]")
		}
		cfg.percentile = p
		return nil
	}
}

// WithHistogramBuckets sets the number of histogram buckets. Defaults to 20.
func WithHistogramBuckets(n int) Option {
	return func(cfg *boardConfig) error {
		if n < 1 {
			return errors.New("histogram buckets must be at least 1")
		}
		cfg.histogramBuckets = n
		return nil
	}
}

// WithCachePath keeps the records of completed months in a SQLite database
// at path so they are fetched once. ":memory:" keeps them for the life of
// the process.
func WithCachePath(path string) Option {
	return func(cfg *boardConfig) error {
		if path == "" {
			return errors.New("cache path cannot be empty")
		}
		cfg.cachePath = path
		return nil
	}
}

// WithMetricsRegistry registers the board's Prometheus collectors with
// registry instead of a private one. /metrics serves registry.
func WithMetricsRegistry(registry *prometheus.Registry) Option {
	return func(cfg *boardConfig) error {
		if registry == nil {
			return errors.New("metrics registry cannot be nil")
		}
		cfg.registry = registry
		return nil
	}
}
