package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_StoreRecorder(t *testing.T) {
	m := New()

	m.StoreWrite("builds_")
	m.StoreWrite("builds_")
	m.StoreNotify("builds_", 3)
	m.SubscriberPanic()
	m.Subscribers(6)

	if got := counterValue(t, m.storeWrites.WithLabelValues("builds_")); got != 2 {
		t.Errorf("writes = %v, want 2", got)
	}
	if got := counterValue(t, m.storeNotifications.WithLabelValues("builds_")); got != 3 {
		t.Errorf("notifications = %v, want 3", got)
	}
	if got := counterValue(t, m.subscriberPanics); got != 1 {
		t.Errorf("panics = %v, want 1", got)
	}
	if got := gaugeValue(t, m.subscribers); got != 6 {
		t.Errorf("subscribers = %v, want 6", got)
	}
}

func TestMetrics_FetchCompleted(t *testing.T) {
	m := New()

	m.FetchCompleted("builds", OutcomeSuccess, 120*time.Millisecond, 42)
	m.FetchCompleted("builds", OutcomeError, time.Second, 0)
	m.FetchCompleted("builds", OutcomeCached, 0, 42)

	for _, outcome := range []string{OutcomeSuccess, OutcomeError, OutcomeCached} {
		if got := counterValue(t, m.fetchesTotal.WithLabelValues("builds", outcome)); got != 1 {
			t.Errorf("fetches{%s} = %v, want 1", outcome, got)
		}
	}
	if got := gaugeValue(t, m.recordsFetched.WithLabelValues("builds")); got != 42 {
		t.Errorf("records = %v, want 42", got)
	}
	if got := histogramCount(t, m.fetchDuration.WithLabelValues("builds")); got != 2 {
		t.Errorf("duration samples = %d, want 2", got)
	}
}

func TestMetrics_CacheAndViews(t *testing.T) {
	m := New(WithNamespace("test"))

	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.ViewPublished("histogram")

	if got := counterValue(t, m.cacheLookups.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
	if got := counterValue(t, m.viewsPublished.WithLabelValues("histogram")); got != 1 {
		t.Errorf("views = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.StoreWrite("s")
	m.StoreNotify("s", 1)
	m.SubscriberPanic()
	m.Subscribers(1)
	m.FetchCompleted("f", OutcomeSuccess, time.Second, 1)
	m.CacheLookup(true)
	m.ViewPublished("k")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil Handler() status = %d, want 404", rec.Code)
	}
}

func TestMetrics_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg))
	m.StoreWrite("vitals_")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `vitalboard_store_writes_total{scope="vitals_"} 1`) {
		t.Errorf("exposition missing store writes:\n%s", rec.Body.String())
	}
	if m.Registry() != reg {
		t.Error("Registry() should return the configured registry")
	}
}
