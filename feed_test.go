package vitalboard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/vitalboard/record"
)

// stubSource is a Source answering from fixed data.
type stubSource struct {
	records []record.Record
	periods []record.YearMonths
	err     error
}

func (s *stubSource) Records(context.Context, record.Period) ([]record.Record, error) {
	return s.records, s.err
}

func (s *stubSource) Periods(context.Context) ([]record.YearMonths, error) {
	return s.periods, s.err
}

func TestNewFeed(t *testing.T) {
	tests := []struct {
		name    string
		feed    string
		kind    string
		url     string
		opts    []FeedOption
		wantErr string
	}{
		{
			name: "http builds feed",
			feed: "builds",
			kind: KindBuilds,
			url:  "https://api.example.com/builds",
			opts: []FeedOption{WithPeriodsURL("https://api.example.com/builds/months")},
		},
		{
			name: "source feed without url",
			feed: "vitals",
			kind: KindVitals,
			opts: []FeedOption{WithSource(&stubSource{})},
		},
		{
			name:    "empty name",
			feed:    "  ",
			kind:    KindBuilds,
			url:     "https://api.example.com/builds",
			wantErr: "name cannot be empty",
		},
		{
			name:    "unknown kind",
			feed:    "builds",
			kind:    "deploys",
			url:     "https://api.example.com/builds",
			wantErr: "feed kind must be",
		},
		{
			name:    "url without scheme",
			feed:    "builds",
			kind:    KindBuilds,
			url:     "api.example.com/builds",
			opts:    []FeedOption{WithPeriodsURL("https://api.example.com/builds/months")},
			wantErr: "scheme",
		},
		{
			name:    "missing periods url",
			feed:    "builds",
			kind:    KindBuilds,
			url:     "https://api.example.com/builds",
			wantErr: "periods URL required",
		},
		{
			name:    "odd labels",
			feed:    "builds",
			kind:    KindBuilds,
			opts:    []FeedOption{WithSource(&stubSource{}), WithLabels("env")},
			wantErr: "even number",
		},
		{
			name:    "odd headers",
			feed:    "builds",
			kind:    KindBuilds,
			opts:    []FeedOption{WithSource(&stubSource{}), WithHeaders("Authorization")},
			wantErr: "even number",
		},
		{
			name:    "zero timeout",
			feed:    "builds",
			kind:    KindBuilds,
			opts:    []FeedOption{WithSource(&stubSource{}), WithTimeout(0)},
			wantErr: "timeout must be positive",
		},
		{
			name:    "interval too short",
			feed:    "builds",
			kind:    KindBuilds,
			opts:    []FeedOption{WithSource(&stubSource{}), WithInterval(500 * time.Millisecond)},
			wantErr: "at least 1 second",
		},
		{
			name:    "interval too long",
			feed:    "builds",
			kind:    KindBuilds,
			opts:    []FeedOption{WithSource(&stubSource{}), WithInterval(25 * time.Hour)},
			wantErr: "must not exceed 24 hours",
		},
		{
			name:    "nil source",
			feed:    "builds",
			kind:    KindBuilds,
			opts:    []FeedOption{WithSource(nil)},
			wantErr: "source cannot be nil",
		},
		{
			name:    "empty scope",
			feed:    "builds",
			kind:    KindBuilds,
			opts:    []FeedOption{WithSource(&stubSource{}), WithScope("")},
			wantErr: "scope cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFeed(tt.feed, tt.kind, tt.url, tt.opts...)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewFeed() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("NewFeed() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewFeed() error = %q, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewFeed_Defaults(t *testing.T) {
	f, err := NewFeed("builds", KindBuilds, "https://api.example.com/builds",
		WithPeriodsURL("https://api.example.com/builds/months"),
	)
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}

	if f.Scope() != "builds_" {
		t.Errorf("Scope() = %q, want %q", f.Scope(), "builds_")
	}
	if f.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", f.Timeout())
	}
	if f.Interval() != 0 {
		t.Errorf("Interval() = %v, want 0", f.Interval())
	}
	if f.Decoder() != nil {
		t.Error("Decoder() should be nil by default")
	}
	if f.Source() != nil {
		t.Error("Source() should be nil for an HTTP feed")
	}
	if f.Kind() != KindBuilds {
		t.Errorf("Kind() = %q, want %q", f.Kind(), KindBuilds)
	}
}

func TestNewFeed_Options(t *testing.T) {
	src := &stubSource{}
	f, err := NewFeed("site vitals", KindVitals, "",
		WithSource(src),
		WithScope("vitals_"),
		WithLabels("env", "prod"),
		WithHeaders("Authorization", "Bearer token"),
		WithTimeout(5*time.Second),
		WithInterval(time.Minute),
		WithDecoder(VitalsDecoder),
	)
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}

	if f.Scope() != "vitals_" {
		t.Errorf("Scope() = %q, want %q", f.Scope(), "vitals_")
	}
	if f.Labels()["env"] != "prod" {
		t.Errorf("Labels()[env] = %q, want prod", f.Labels()["env"])
	}
	if f.Headers()["Authorization"] != "Bearer token" {
		t.Errorf("Headers()[Authorization] = %q", f.Headers()["Authorization"])
	}
	if f.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", f.Timeout())
	}
	if f.Interval() != time.Minute {
		t.Errorf("Interval() = %v, want 1m", f.Interval())
	}
	if f.Decoder() == nil {
		t.Error("Decoder() should be set")
	}
	if f.Source() != src {
		t.Error("Source() should return the configured source")
	}
}

func TestFeed_GettersReturnCopies(t *testing.T) {
	f, err := NewFeed("builds", KindBuilds, "https://api.example.com/builds",
		WithPeriodsURL("https://api.example.com/builds/months"),
		WithLabels("env", "prod"),
		WithHeaders("X-Key", "secret"),
	)
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}

	f.Labels()["env"] = "modified"
	f.Headers()["X-Key"] = "modified"

	if f.Labels()["env"] != "prod" {
		t.Error("mutating Labels() changed the feed")
	}
	if f.Headers()["X-Key"] != "secret" {
		t.Error("mutating Headers() changed the feed")
	}
}
