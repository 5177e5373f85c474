package vitalboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/vitalboard/dashboard"
	"github.com/jpalmerr/vitalboard/internal/cache"
	"github.com/jpalmerr/vitalboard/internal/metrics"
	"github.com/jpalmerr/vitalboard/internal/panel"
	"github.com/jpalmerr/vitalboard/internal/poller"
	"github.com/jpalmerr/vitalboard/internal/server"
	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/pipeline"
)

const (
	defaultPollInterval   = 15 * time.Minute
	defaultPort           = 8080
	defaultMaxConcurrency = 4
	defaultDebounce       = 250 * time.Millisecond
)

// Board fetches build and vitals feeds into a scoped store and serves the
// dashboard panels derived from it.
//
// A Board is created with [New] and run with [Board.Start]:
//
//	board, err := vitalboard.New(vitalboard.WithFeed(builds), vitalboard.WithFeed(vitals))
//	if err != nil {
//	    slog.Error("failed to create board", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	board.Start(ctx) // blocks until ctx is cancelled
type Board struct {
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

// New creates a [Board] with the given options.
//
// At least one feed is required. Feed names and scopes must be unique.
// Defaults: poll interval 15 minutes, port 8080, max concurrency 4,
// debounce 250ms, breadth-first dispatch, percentile 0.75.
func New(opts ...Option) (*Board, error) {
	cfg := &boardConfig{
		pollInterval:     defaultPollInterval,
		port:             defaultPort,
		maxConcurrency:   defaultMaxConcurrency,
		dispatch:         BreadthFirst,
		debounce:         defaultDebounce,
		percentile:       pipeline.DefaultPercentile,
		histogramBuckets: pipeline.DefaultHistogramBuckets,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.feeds) == 0 {
		return nil, errors.New("at least one feed is required")
	}

	names := make(map[string]bool, len(cfg.feeds))
	scopes := make(map[string]bool, len(cfg.feeds))
	for _, f := range cfg.feeds {
		if names[f.name] {
			return nil, fmt.Errorf("duplicate feed name: %q", f.name)
		}
		if scopes[f.scope] {
			return nil, fmt.Errorf("duplicate feed scope: %q", f.scope)
		}
		names[f.name] = true
		scopes[f.scope] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		title:            cfg.title,
		feeds:            cfg.feeds,
		pollInterval:     cfg.pollInterval,
		port:             cfg.port,
		maxConcurrency:   cfg.maxConcurrency,
		logger:           logger,
		fetchCallbacks:   cfg.fetchCallbacks,
		dispatch:         cfg.dispatch,
		debounce:         cfg.debounce,
		percentile:       cfg.percentile,
		histogramBuckets: cfg.histogramBuckets,
		cachePath:        cfg.cachePath,
		registry:         cfg.registry,
	}, nil
}

// Start fetches the feeds and serves the dashboard until ctx is cancelled.
//
// Start creates the store and its session, mounts each feed's panels,
// fetches every feed's periods listing immediately and then refreshes at
// the poll interval. Month records are fetched as months are selected.
// Every fetch result is written to the store on the session goroutine.
//
// Returns nil on graceful shutdown, or an error if the cache cannot be
// opened or the HTTP server fails to start.
func (b *Board) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	b.logger.Info("vitalboard starting", "feed_count", len(b.feeds))
	b.logger.Info("polling configured", "interval", b.pollInterval.String(), "dispatch", b.dispatch.String())

	m := metrics.New(metrics.WithRegistry(b.registry))

	st := store.New(
		store.WithDispatch(b.dispatch),
		store.WithLogger(b.logger),
		store.WithRecorder(m),
	)
	session := store.NewSession(st, b.logger)
	// the session outlives ctx so that shutdown can still unmount panels
	sessionCtx, stopSession := context.WithCancel(context.Background())
	go session.Run(sessionCtx)
	defer func() {
		stopSession()
		<-session.Done()
	}()

	schedulerOpts := []poller.SchedulerOption{poller.WithObserver(m)}
	if b.cachePath != "" {
		c, err := cache.Open(b.cachePath, cache.WithObserver(m))
		if err != nil {
			return fmt.Errorf("failed to open record cache: %w", err)
		}
		defer func() {
			if err := c.Close(); err != nil {
				b.logger.Warn("record cache close failed", "error", err)
			}
		}()
		schedulerOpts = append(schedulerOpts, poller.WithCache(c))
	}

	client := poller.NewClient()
	defer client.Close()

	scheduler := poller.NewScheduler(b.toFeedInfos(client), b.pollInterval, b.maxConcurrency, b.logger, schedulerOpts...)

	views := store.NewMemoryViews()
	panels, err := b.panels(scheduler, views, m)
	if err != nil {
		return err
	}
	var mountErr error
	err = session.Do(ctx, func(st *store.Store) {
		mountErr = panel.MountAll(st, panels)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to mount panels: %w", err)
	}
	if mountErr != nil {
		return fmt.Errorf("failed to mount panels: %w", mountErr)
	}

	scheduler.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			b.handleResult(session, result)
		}
	}()

	cleanup := func() {
		scheduler.Stop() // closes results channel
		wg.Wait()
		err := session.Do(context.Background(), func(*store.Store) {
			panel.UnmountAll(panels)
		})
		if err != nil {
			b.logger.Warn("panel unmount failed", "error", err)
		}
	}

	httpServer := server.NewServer(views, session, b.port, dashboard.Assets, b.title, b.logger,
		server.WithMetricsHandler(m.Handler()),
	)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	b.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", b.port))

	<-ctx.Done()
	cleanup()
	b.logger.Info("vitalboard stopped")
	return nil
}

// panels builds the standard panels of every feed, in feed order.
func (b *Board) panels(fetcher panel.Fetcher, views store.Views, m *metrics.Metrics) ([]panel.Panel, error) {
	cfg := panel.Config{
		Views:            views,
		Logger:           b.logger,
		Debounce:         b.debounce,
		Percentile:       b.percentile,
		HistogramBuckets: b.histogramBuckets,
		Observer:         m,
	}

	var all []panel.Panel
	for _, f := range b.feeds {
		ps, err := panel.Standard(f.name, f.scope, f.kind, fetcher, cfg)
		if err != nil {
			return nil, fmt.Errorf("feed %q: %w", f.name, err)
		}
		all = append(all, ps...)
	}
	return all, nil
}

// handleResult applies a fetch result on the session goroutine, then runs
// the fetch callbacks.
func (b *Board) handleResult(session *store.Session, result poller.FetchResult) {
	err := session.Post(func(st *store.Store) {
		applyResult(st, result)
	})
	if err != nil {
		b.logger.Debug("fetch result dropped", "feed", result.Feed, "error", err)
	}

	if len(b.fetchCallbacks) > 0 {
		event := toFetchEvent(result)
		for _, cb := range b.fetchCallbacks {
			invokeCallbackSafe(cb, event, b.logger)
		}
	}

	logAttrs := []any{
		"feed", result.Feed,
		"scope", result.Scope,
		"periods", result.IsPeriods,
		"latency_ms", result.Latency.Milliseconds(),
	}
	if !result.IsPeriods {
		logAttrs = append(logAttrs, "period", result.Period.String(), "records", len(result.Records), "cached", result.Cached)
	}
	if result.Err != nil {
		b.logger.Warn("fetch completed with error", append(logAttrs, "error", result.Err.Error())...)
	} else {
		b.logger.Debug("fetch completed", logAttrs...)
	}
}

// applyResult writes a fetch result into its scope. A failed fetch leaves
// the stored data untouched.
func applyResult(st *store.Store, result poller.FetchResult) {
	switch {
	case result.Err != nil && result.IsPeriods:
	case result.Err != nil:
		panel.ApplyFetchFailure(st, result.Scope, result.Period)
	case result.IsPeriods:
		panel.ApplyPeriods(st, result.Scope, result.Periods)
	default:
		panel.ApplyRecords(st, result.Scope, result.Period, result.Records)
	}
}

// toFeedInfos converts feeds to the scheduler's representation.
func (b *Board) toFeedInfos(client *poller.Client) []poller.FeedInfo {
	result := make([]poller.FeedInfo, len(b.feeds))
	for i, f := range b.feeds {
		result[i] = poller.FeedInfo{
			Name:     f.name,
			Scope:    f.scope,
			Kind:     f.kind,
			Source:   feedSource(f, client),
			Timeout:  f.timeout,
			Interval: f.interval,
		}
	}
	return result
}

// feedSource returns the feed's custom source, or an HTTP source for it.
func feedSource(f Feed, client *poller.Client) poller.Source {
	if f.source != nil {
		return f.source
	}
	decoder := f.decoder
	if decoder == nil {
		decoder = DefaultDecoder
	}
	return &poller.HTTPSource{
		Client:     client,
		URL:        f.url,
		PeriodsURL: f.periodsURL,
		Headers:    copyMap(f.headers),
		Timeout:    f.timeout,
		Decoder:    poller.RecordDecoder(decoder),
	}
}

func toFetchEvent(r poller.FetchResult) FetchEvent {
	months := 0
	for _, ym := range r.Periods {
		months += len(ym.MonthNumbers)
	}
	return FetchEvent{
		Feed:      r.Feed,
		Scope:     r.Scope,
		Kind:      r.Kind,
		IsPeriods: r.IsPeriods,
		Period:    r.Period,
		Records:   len(r.Records),
		Months:    months,
		Cached:    r.Cached,
		Latency:   r.Latency,
		FetchedAt: r.FetchedAt,
		Err:       r.Err,
	}
}

// invokeCallbackSafe calls a fetch callback with panic recovery.
func invokeCallbackSafe(cb func(FetchEvent), event FetchEvent, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("fetch callback panicked",
				"panic", r,
				"feed", event.Feed,
			)
		}
	}()
	cb(event)
}

// Feeds returns a copy of the configured feeds.
func (b *Board) Feeds() []Feed {
	cp := make([]Feed, len(b.feeds))
	copy(cp, b.feeds)
	return cp
}

// Port returns the HTTP port of the dashboard server.
func (b *Board) Port() int {
	return b.port
}

// PollInterval returns the default refresh interval.
func (b *Board) PollInterval() time.Duration {
	return b.pollInterval
}
