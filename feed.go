package vitalboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jpalmerr/vitalboard/record"
)

const defaultFeedTimeout = 30 * time.Second

// Record kinds accepted by [NewFeed].
const (
	KindBuilds = record.KindBuilds
	KindVitals = record.KindVitals
)

// Source fetches the records of one month and lists the months that have
// data. Implement Source to read records from somewhere other than a JSON
// HTTP API; see [WithSource].
type Source interface {
	Records(ctx context.Context, period record.Period) ([]record.Record, error)
	Periods(ctx context.Context) ([]record.YearMonths, error)
}

// Feed is one upstream source of build or vitals records, shown as one
// dashboard scope.
//
// Feed is immutable after creation via [NewFeed]. Getters return copies of
// mutable data.
type Feed struct {
	name       string
	kind       string
	scope      string
	url        string
	periodsURL string
	labels     map[string]string
	headers    map[string]string
	timeout    time.Duration
	interval   time.Duration
	decoder    Decoder
	source     Source
}

// Name returns the feed's name. Names are unique within a [Board].
func (f Feed) Name() string {
	return f.name
}

// Kind returns [KindBuilds] or [KindVitals].
func (f Feed) Kind() string {
	return f.kind
}

// Scope returns the store scope the feed writes to, e.g. "builds_".
func (f Feed) Scope() string {
	return f.scope
}

// URL returns the records URL. Empty when the feed uses a custom [Source].
func (f Feed) URL() string {
	return f.url
}

// PeriodsURL returns the URL listing the months that have data.
func (f Feed) PeriodsURL() string {
	return f.periodsURL
}

// Labels returns a copy of the feed's labels.
func (f Feed) Labels() map[string]string {
	return copyMap(f.labels)
}

// Headers returns a copy of the HTTP headers sent with every request.
func (f Feed) Headers() map[string]string {
	return copyMap(f.headers)
}

// Timeout returns the per-request timeout. Defaults to 30 seconds.
func (f Feed) Timeout() time.Duration {
	return f.timeout
}

// Interval returns the feed's refresh interval, or 0 to use the board's
// poll interval.
func (f Feed) Interval() time.Duration {
	return f.interval
}

// Decoder returns the feed's [Decoder]. When nil, HTTP responses are decoded
// with [DefaultDecoder].
func (f Feed) Decoder() Decoder {
	return f.decoder
}

// Source returns the custom [Source], or nil for an HTTP feed.
func (f Feed) Source() Source {
	return f.source
}

// NewFeed creates a [Feed].
//
// kind is [KindBuilds] or [KindVitals]. rawURL is the records endpoint,
// queried with year and month parameters; it may be empty only when
// [WithSource] supplies the records. The scope defaults to name + "_".
//
// Example:
//
//	builds, err := vitalboard.NewFeed("builds", vitalboard.KindBuilds,
//	    "https://api.example.com/builds",
//	    vitalboard.WithPeriodsURL("https://api.example.com/builds/months"),
//	    vitalboard.WithHeaders("Authorization", "Bearer token"),
//	)
func NewFeed(name, kind, rawURL string, opts ...FeedOption) (Feed, error) {
	if strings.TrimSpace(name) == "" {
		return Feed{}, errors.New("feed name cannot be empty")
	}
	if kind != KindBuilds && kind != KindVitals {
		return Feed{}, fmt.Errorf("feed kind must be %q or %q, got %q", KindBuilds, KindVitals, kind)
	}

	cfg := &feedConfig{
		labels:  make(map[string]string),
		headers: make(map[string]string),
		timeout: defaultFeedTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Feed{}, err
		}
	}

	if cfg.source == nil {
		if err := validateURL(rawURL); err != nil {
			return Feed{}, err
		}
		if cfg.periodsURL == "" {
			return Feed{}, errors.New("periods URL required for HTTP feeds")
		}
	}

	scope := cfg.scope
	if scope == "" {
		scope = name + "_"
	}

	return Feed{
		name:       name,
		kind:       kind,
		scope:      scope,
		url:        rawURL,
		periodsURL: cfg.periodsURL,
		labels:     cfg.labels,
		headers:    cfg.headers,
		timeout:    cfg.timeout,
		interval:   cfg.interval,
		decoder:    cfg.decoder,
		source:     cfg.source,
	}, nil
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL: " + err.Error())
	}
	if parsed.Scheme == "" {
		return errors.New("URL must have a scheme (http:// or https://)")
	}
	return nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
