package vitalboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/vitalboard/internal/panel"
	"github.com/jpalmerr/vitalboard/internal/poller"
	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/record"
)

var jan2024 = record.Period{Year: 2024, Month: 1}

func selectPeriod(st *store.Store, scope string, p record.Period) {
	st.Set(scope, panel.KeyYearSelected, p.Year)
	st.Set(scope, panel.KeyMonthSelected, p.Month)
}

func TestApplyResult_Periods(t *testing.T) {
	st := store.New()
	periods := []record.YearMonths{{Year: 2024, MonthNumbers: []int{1, 2}}}

	applyResult(st, poller.FetchResult{Scope: "builds_", IsPeriods: true, Periods: periods})

	got, ok := store.Lookup[[]record.YearMonths](st, "builds_", panel.KeyYearsAndMonths)
	if !ok || len(got) != 1 || got[0].Year != 2024 {
		t.Errorf("yearsAndMonths = %v, %v", got, ok)
	}
}

func TestApplyResult_PeriodsErrorWritesNothing(t *testing.T) {
	st := store.New()

	applyResult(st, poller.FetchResult{Scope: "builds_", IsPeriods: true, Err: errors.New("boom")})

	if _, ok := st.Get("builds_", panel.KeyYearsAndMonths); ok {
		t.Error("failed periods fetch should not write yearsAndMonths")
	}
}

func TestApplyResult_RecordsForSelectedMonth(t *testing.T) {
	st := store.New()
	selectPeriod(st, "builds_", jan2024)
	st.Set("builds_", panel.KeyFetching, true)

	records := []record.Record{{Context: "production", Value: 42, Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)}}
	applyResult(st, poller.FetchResult{Scope: "builds_", Period: jan2024, Records: records})

	selected, ok := store.Lookup[[]record.Record](st, "builds_", panel.KeySelectedData)
	if !ok || len(selected) != 1 {
		t.Fatalf("selectedDataVizData = %v, %v", selected, ok)
	}
	if selected[0].Date != "2024-01-03" {
		t.Errorf("Date = %q, want 2024-01-03", selected[0].Date)
	}
	if fetching, _ := store.Lookup[bool](st, "builds_", panel.KeyFetching); fetching {
		t.Error("fetching should be cleared")
	}
	cache, _ := store.Lookup[map[string][]record.Record](st, "builds_", panel.KeyDataVizData)
	if len(cache[jan2024.Key()]) != 1 {
		t.Errorf("dataVizData[%s] = %v", jan2024.Key(), cache[jan2024.Key()])
	}
}

func TestApplyResult_FailureKeepsPriorData(t *testing.T) {
	st := store.New()
	selectPeriod(st, "builds_", jan2024)
	prior := []record.Record{{Context: "cms", Value: 30}}
	st.Set("builds_", panel.KeySelectedData, prior)
	st.Set("builds_", panel.KeyFetching, true)

	applyResult(st, poller.FetchResult{Scope: "builds_", Period: jan2024, Err: errors.New("timeout")})

	selected, _ := store.Lookup[[]record.Record](st, "builds_", panel.KeySelectedData)
	if len(selected) != 1 || selected[0].Value != 30 {
		t.Errorf("prior data replaced: %v", selected)
	}
	if fetching, _ := store.Lookup[bool](st, "builds_", panel.KeyFetching); fetching {
		t.Error("fetching should be cleared after a failed fetch")
	}
	if _, ok := st.Get("builds_", panel.KeyDataVizData); ok {
		t.Error("failed fetch should not touch dataVizData")
	}
}

func TestToFetchEvent(t *testing.T) {
	now := time.Now()
	r := poller.FetchResult{
		Feed:      "vitals",
		Scope:     "vitals_",
		Kind:      KindVitals,
		IsPeriods: true,
		Periods: []record.YearMonths{
			{Year: 2023, MonthNumbers: []int{11, 12}},
			{Year: 2024, MonthNumbers: []int{1}},
		},
		Latency:   150 * time.Millisecond,
		FetchedAt: now,
	}

	e := toFetchEvent(r)
	if e.Feed != "vitals" || e.Scope != "vitals_" || e.Kind != KindVitals || !e.IsPeriods {
		t.Errorf("event = %+v", e)
	}
	if e.Months != 3 {
		t.Errorf("Months = %d, want 3", e.Months)
	}
	if e.Latency != 150*time.Millisecond || !e.FetchedAt.Equal(now) {
		t.Errorf("Latency = %v, FetchedAt = %v", e.Latency, e.FetchedAt)
	}

	e = toFetchEvent(poller.FetchResult{Period: jan2024, Records: make([]record.Record, 4), Cached: true})
	if e.Records != 4 || !e.Cached || e.Period != jan2024 {
		t.Errorf("records event = %+v", e)
	}
}

func TestInvokeCallbackSafe_RecoversPanic(t *testing.T) {
	called := false
	invokeCallbackSafe(func(FetchEvent) {
		called = true
		panic("callback failure")
	}, FetchEvent{Feed: "builds"}, testLogger())

	if !called {
		t.Error("callback was not invoked")
	}
}

func TestToFeedInfos(t *testing.T) {
	src := &stubSource{}
	custom, err := NewFeed("vitals", KindVitals, "", WithSource(src), WithInterval(time.Minute))
	if err != nil {
		t.Fatalf("NewFeed() error = %v", err)
	}
	httpFeed := testFeed(t, "builds", WithHeaders("Authorization", "Bearer token"), WithTimeout(3*time.Second))

	b, err := New(WithFeeds(httpFeed, custom), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	client := poller.NewClient()
	defer client.Close()
	infos := b.toFeedInfos(client)
	if len(infos) != 2 {
		t.Fatalf("got %d feed infos, want 2", len(infos))
	}

	hs, ok := infos[0].Source.(*poller.HTTPSource)
	if !ok {
		t.Fatalf("HTTP feed source = %T, want *poller.HTTPSource", infos[0].Source)
	}
	if hs.URL != "https://api.example.com/builds" || !strings.HasSuffix(hs.PeriodsURL, "/months") {
		t.Errorf("HTTPSource urls = %q, %q", hs.URL, hs.PeriodsURL)
	}
	if hs.Decoder == nil {
		t.Error("HTTPSource should fall back to DefaultDecoder")
	}
	if hs.Timeout != 3*time.Second || infos[0].Timeout != 3*time.Second {
		t.Errorf("timeouts = %v, %v", hs.Timeout, infos[0].Timeout)
	}

	// the source gets its own copy of the headers
	hs.Headers["Authorization"] = "modified"
	if httpFeed.Headers()["Authorization"] != "Bearer token" {
		t.Error("mutating source headers changed the feed")
	}

	if infos[1].Source != src {
		t.Errorf("custom source not passed through: %T", infos[1].Source)
	}
	if infos[1].Interval != time.Minute || infos[1].Scope != "vitals_" || infos[1].Kind != KindVitals {
		t.Errorf("custom feed info = %+v", infos[1])
	}
}
