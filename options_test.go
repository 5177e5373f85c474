package vitalboard

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFeed(t *testing.T, name string, opts ...FeedOption) Feed {
	t.Helper()
	opts = append([]FeedOption{WithPeriodsURL("https://api.example.com/" + name + "/months")}, opts...)
	f, err := NewFeed(name, KindBuilds, "https://api.example.com/"+name, opts...)
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	return f
}

func TestNew_Defaults(t *testing.T) {
	b, err := New(WithFeed(testFeed(t, "builds")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if b.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", b.Port())
	}
	if b.PollInterval() != 15*time.Minute {
		t.Errorf("PollInterval() = %v, want 15m", b.PollInterval())
	}
	if b.maxConcurrency != 4 {
		t.Errorf("maxConcurrency = %d, want 4", b.maxConcurrency)
	}
	if b.dispatch != BreadthFirst {
		t.Errorf("dispatch = %v, want breadth-first", b.dispatch)
	}
	if b.debounce != 250*time.Millisecond {
		t.Errorf("debounce = %v, want 250ms", b.debounce)
	}
	if b.percentile != 0.75 {
		t.Errorf("percentile = %v, want 0.75", b.percentile)
	}
	if b.histogramBuckets != 20 {
		t.Errorf("histogramBuckets = %d, want 20", b.histogramBuckets)
	}
	if b.logger == nil {
		t.Error("logger should default to slog.Default()")
	}
}

func TestNew_AllOptions(t *testing.T) {
	registry := prometheus.NewRegistry()
	b, err := New(
		WithFeeds(testFeed(t, "builds"), testFeed(t, "vitals")),
		WithPollInterval(time.Minute),
		WithPort(9090),
		WithMaxConcurrency(2),
		WithLogger(testLogger()),
		WithFetchCallback(func(FetchEvent) {}),
		WithFetchCallback(nil),
		WithTitle("Site health"),
		WithDispatch(DepthFirst),
		WithDebounce(0),
		WithPercentile(0.9),
		WithHistogramBuckets(10),
		WithCachePath(":memory:"),
		WithMetricsRegistry(registry),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if len(b.Feeds()) != 2 {
		t.Errorf("Feeds() len = %d, want 2", len(b.Feeds()))
	}
	if b.PollInterval() != time.Minute || b.Port() != 9090 || b.maxConcurrency != 2 {
		t.Errorf("interval/port/concurrency = %v/%d/%d", b.PollInterval(), b.Port(), b.maxConcurrency)
	}
	if len(b.fetchCallbacks) != 1 {
		t.Errorf("fetchCallbacks = %d, want 1 (nil ignored)", len(b.fetchCallbacks))
	}
	if b.title != "Site health" || b.dispatch != DepthFirst || b.debounce != 0 {
		t.Errorf("title/dispatch/debounce = %q/%v/%v", b.title, b.dispatch, b.debounce)
	}
	if b.percentile != 0.9 || b.histogramBuckets != 10 {
		t.Errorf("percentile/buckets = %v/%d", b.percentile, b.histogramBuckets)
	}
	if b.cachePath != ":memory:" || b.registry != registry {
		t.Errorf("cachePath/registry = %q/%p", b.cachePath, b.registry)
	}
}

func TestNew_Errors(t *testing.T) {
	builds := testFeed(t, "builds")
	sameScope := testFeed(t, "builds-copy", WithScope("builds_"))

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"no feeds", nil, "at least one feed"},
		{"duplicate name", []Option{WithFeed(builds), WithFeed(builds)}, "duplicate feed name"},
		{"duplicate scope", []Option{WithFeed(builds), WithFeed(sameScope)}, "duplicate feed scope"},
		{"zero poll interval", []Option{WithFeed(builds), WithPollInterval(0)}, "poll interval must be positive"},
		{"port too low", []Option{WithFeed(builds), WithPort(0)}, "port must be between"},
		{"port too high", []Option{WithFeed(builds), WithPort(65536)}, "port must be between"},
		{"zero concurrency", []Option{WithFeed(builds), WithMaxConcurrency(0)}, "max concurrency must be positive"},
		{"nil logger", []Option{WithFeed(builds), WithLogger(nil)}, "logger cannot be nil"},
		{"unknown dispatch", []Option{WithFeed(builds), WithDispatch(DispatchMode(7))}, "unknown dispatch mode"},
		{"negative debounce", []Option{WithFeed(builds), WithDebounce(-time.Second)}, "debounce cannot be negative"},
		{"zero percentile", []Option{WithFeed(builds), WithPercentile(0)}, "percentile must be in"},
		{"percentile above one", []Option{WithFeed(builds), WithPercentile(1.5)}, "percentile must be in"},
		{"NaN percentile", []Option{WithFeed(builds), WithPercentile(math.NaN())}, "percentile must be in"},
		{"zero buckets", []Option{WithFeed(builds), WithHistogramBuckets(0)}, "histogram buckets"},
		{"empty cache path", []Option{WithFeed(builds), WithCachePath("")}, "cache path cannot be empty"},
		{"nil registry", []Option{WithFeed(builds), WithMetricsRegistry(nil)}, "metrics registry cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if err == nil {
				t.Fatalf("New() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBoard_FeedsReturnsCopy(t *testing.T) {
	b, err := New(WithFeed(testFeed(t, "builds")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	feeds := b.Feeds()
	feeds[0] = testFeed(t, "other")

	if b.Feeds()[0].Name() != "builds" {
		t.Error("mutating Feeds() result changed the board")
	}
}
