package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/jpalmerr/vitalboard"
	"github.com/jpalmerr/vitalboard/internal/postgres"
	"github.com/jpalmerr/vitalboard/internal/store"
)

// closingSource is a feed source holding a connection.
type closingSource interface {
	vitalboard.Source
	io.Closer
}

// openPostgres opens a Postgres record source. Tests replace it.
var openPostgres = func(ctx context.Context, dsn, kind string, opts ...postgres.Option) (closingSource, error) {
	return postgres.Open(ctx, dsn, kind, opts...)
}

// Resources holds what [Build] opened on behalf of the board.
type Resources struct {
	closers []io.Closer
}

// Close releases every opened source.
func (r *Resources) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Build converts parsed configuration into board options.
//
// Postgres feeds connect during Build; the returned [Resources] must be
// closed once the board has stopped, including when Build fails part way
// (it is then already closed).
func Build(ctx context.Context, cfg *Config) ([]vitalboard.Option, *Resources, error) {
	feeds, res, err := BuildFeeds(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	dispatch, err := store.ParseDispatchMode(cfg.Dispatch)
	if err != nil {
		_ = res.Close()
		return nil, nil, err
	}

	opts := []vitalboard.Option{
		vitalboard.WithFeeds(feeds...),
		vitalboard.WithPort(cfg.Port),
		vitalboard.WithPollInterval(cfg.PollInterval.Duration()),
		vitalboard.WithDispatch(dispatch),
	}
	if cfg.Title != "" {
		opts = append(opts, vitalboard.WithTitle(cfg.Title))
	}
	if cfg.MaxConcurrency > 0 {
		opts = append(opts, vitalboard.WithMaxConcurrency(cfg.MaxConcurrency))
	}
	if cfg.Debounce != nil {
		opts = append(opts, vitalboard.WithDebounce(cfg.Debounce.Duration()))
	}
	if cfg.Percentile > 0 {
		opts = append(opts, vitalboard.WithPercentile(cfg.Percentile))
	}
	if cfg.HistogramBuckets > 0 {
		opts = append(opts, vitalboard.WithHistogramBuckets(cfg.HistogramBuckets))
	}
	if cfg.CachePath != "" {
		opts = append(opts, vitalboard.WithCachePath(cfg.CachePath))
	}
	return opts, res, nil
}

// BuildFeeds converts parsed configuration into SDK Feed objects.
//
// It processes both direct feeds and grids, returning a combined slice.
// Grid dimensions are expanded via [vitalboard.NewFeedGrid].
func BuildFeeds(ctx context.Context, cfg *Config) ([]vitalboard.Feed, *Resources, error) {
	res := &Resources{}
	var feeds []vitalboard.Feed

	for i, fc := range cfg.Feeds {
		f, err := buildFeed(ctx, fc, res)
		if err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("feeds[%d] (%s): %w", i, fc.Name, err)
		}
		feeds = append(feeds, f)
	}

	for i, gc := range cfg.Grids {
		gridFeeds, err := buildGridFeeds(gc)
		if err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("grids[%d] (%s): %w", i, gc.Name, err)
		}
		feeds = append(feeds, gridFeeds...)
	}

	return feeds, res, nil
}

// buildFeed converts a single FeedConfig to an SDK Feed.
func buildFeed(ctx context.Context, fc FeedConfig, res *Resources) (vitalboard.Feed, error) {
	var opts []vitalboard.FeedOption

	if fc.Scope != "" {
		opts = append(opts, vitalboard.WithScope(fc.Scope))
	}
	if fc.PeriodsURL != "" {
		opts = append(opts, vitalboard.WithPeriodsURL(fc.PeriodsURL))
	}
	if fc.Timeout != 0 {
		opts = append(opts, vitalboard.WithTimeout(fc.Timeout.Duration()))
	}
	if fc.Interval != 0 {
		opts = append(opts, vitalboard.WithInterval(fc.Interval.Duration()))
	}
	if len(fc.Headers) > 0 {
		opts = append(opts, vitalboard.WithHeaders(mapToKeyValuePairs(fc.Headers)...))
	}
	if len(fc.Labels) > 0 {
		opts = append(opts, vitalboard.WithLabels(mapToKeyValuePairs(fc.Labels)...))
	}
	if dec := buildDecoder(fc.Decoder); dec != nil {
		opts = append(opts, vitalboard.WithDecoder(dec))
	}

	if fc.Postgres != nil {
		var pgOpts []postgres.Option
		if len(fc.Postgres.Metrics) > 0 {
			pgOpts = append(pgOpts, postgres.WithMetrics(fc.Postgres.Metrics...))
		}
		if fc.Postgres.BatchSize > 0 {
			pgOpts = append(pgOpts, postgres.WithBatchSize(fc.Postgres.BatchSize))
		}
		src, err := openPostgres(ctx, fc.Postgres.DSN, fc.Kind, pgOpts...)
		if err != nil {
			return vitalboard.Feed{}, err
		}
		res.closers = append(res.closers, src)
		opts = append(opts, vitalboard.WithSource(src))
	}

	return vitalboard.NewFeed(fc.Name, fc.Kind, fc.URL, opts...)
}

// buildGridFeeds expands a GridConfig into one feed per dimension
// combination.
func buildGridFeeds(gc GridConfig) ([]vitalboard.Feed, error) {
	opts := []vitalboard.GridOption{
		vitalboard.WithURLTemplate(gc.URLTemplate),
		vitalboard.WithPeriodsURLTemplate(gc.PeriodsURLTemplate),
		vitalboard.WithDimensions(gc.Dimensions),
	}
	if gc.Timeout != 0 {
		opts = append(opts, vitalboard.WithGridTimeout(gc.Timeout.Duration()))
	}
	if gc.Interval != 0 {
		opts = append(opts, vitalboard.WithGridInterval(gc.Interval.Duration()))
	}
	if len(gc.Headers) > 0 {
		opts = append(opts, vitalboard.WithGridHeaders(mapToKeyValuePairs(gc.Headers)...))
	}
	if len(gc.Labels) > 0 {
		opts = append(opts, vitalboard.WithGridLabels(mapToKeyValuePairs(gc.Labels)...))
	}
	if dec := buildDecoder(gc.Decoder); dec != nil {
		opts = append(opts, vitalboard.WithGridDecoder(dec))
	}
	return vitalboard.NewFeedGrid(gc.Name, gc.Kind, opts...)
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}

// buildDecoder converts DecoderConfig to a Decoder.
// Returns nil for default/empty decoders (the SDK uses DefaultDecoder).
func buildDecoder(dc DecoderConfig) vitalboard.Decoder {
	switch dc.Type {
	case "builds":
		return vitalboard.BuildDecoder
	case "vitals":
		return vitalboard.VitalsDecoder
	case "fields":
		return vitalboard.FieldDecoder(vitalboard.FieldMap{
			Items:     dc.Items,
			Context:   dc.Context,
			Value:     dc.Value,
			Timestamp: dc.Timestamp,
			Path:      dc.Path,
		})
	default:
		return nil
	}
}
