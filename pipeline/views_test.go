package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/jpalmerr/vitalboard/record"
)

func vital(metric, path string, value float64, ts string) record.Record {
	t, _ := time.Parse(time.RFC3339, ts)
	return record.Record{Context: metric, Path: path, Value: value, Timestamp: t}
}

func TestSequence(t *testing.T) {
	records := []record.Record{
		{Context: "production", Value: 42},
		{Context: "cms", Value: 60},
		{Context: "production", Value: 38},
	}

	got := Sequence(records, "production")
	if len(got) != 2 {
		t.Fatalf("Sequence() returned %d records, want 2", len(got))
	}
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Errorf("Seq = %d, %d, want 1, 2", got[0].Seq, got[1].Seq)
	}
	if records[0].Seq != 0 {
		t.Error("Sequence() must not modify the input records")
	}
}

func TestSequence_EmptyContextPlaceholder(t *testing.T) {
	got := Sequence(nil, "cms")
	if len(got) != 1 || got[0].Value != 0 || got[0].Seq != 0 {
		t.Errorf("Sequence(nil) = %+v, want one zero placeholder", got)
	}
}

func TestDaily(t *testing.T) {
	records := []record.Record{
		vital("lcp", "/", 1000, "2024-01-01T10:00:00Z"),
		vital("lcp", "/", 2000, "2024-01-01T11:00:00Z"),
		vital("lcp", "/", 1500, "2024-01-02T09:00:00Z"),
		vital("lcp", "/", 9000, "2024-01-02T09:30:00Z"), // above p75, filtered
		vital("cls", "/", 0.5, "2024-01-01T10:00:00Z"),
	}

	points, err := Daily(records, "lcp", 0.75)
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Daily() returned %d points, want 2: %+v", len(points), points)
	}

	want := []DailyPoint{
		{Date: "2024-01-01", Day: 1, Value: 1500, Count: 2},
		{Date: "2024-01-02", Day: 2, Value: 1500, Count: 1},
	}
	for i := range want {
		if points[i] != want[i] {
			t.Errorf("points[%d] = %+v, want %+v", i, points[i], want[i])
		}
	}
}

func TestDaily_EmptyPlaceholder(t *testing.T) {
	points, err := Daily(nil, "lcp", 0.75)
	if err != nil {
		t.Fatalf("Daily() error = %v", err)
	}
	if len(points) != 1 || points[0] != (DailyPoint{}) {
		t.Errorf("Daily(nil) = %+v, want one zero point", points)
	}
}

func TestFrequency(t *testing.T) {
	records := []record.Record{
		vital("fid", "/", 10, "2024-01-01T10:00:00Z"),
		vital("fid", "/", 20, "2024-01-01T10:00:00Z"),
		vital("fid", "/", 30, "2024-01-01T10:00:00Z"),
		vital("fid", "/", 40, "2024-01-01T10:00:00Z"),
		vital("fid", "/", 50, "2024-01-01T10:00:00Z"),
	}
	got, err := Frequency(records, "fid", 0.75)
	if err != nil {
		t.Fatalf("Frequency() error = %v", err)
	}
	if len(got) != 4 {
		t.Errorf("Frequency() = %v, want 4 values", got)
	}
}

func TestPages(t *testing.T) {
	records := []record.Record{
		vital("lcp", "/fast", 1000, "2024-01-01T10:00:00Z"),
		vital("lcp", "/slow", 3000, "2024-01-01T10:00:00Z"),
		vital("lcp", "/slower", 3500, "2024-01-01T10:00:00Z"),
		vital("lcp", "/slow", 3200, "2024-01-01T10:00:00Z"),
	}

	pages, err := Pages(records, "lcp", 1)
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("Pages() returned %d pages, want 2: %+v", len(pages), pages)
	}
	if pages[0].Path != "/slower" || pages[1].Path != "/slow" {
		t.Errorf("Pages() order = %s, %s, want /slower, /slow", pages[0].Path, pages[1].Path)
	}
	if pages[1].Value != 3100 || pages[1].Count != 2 {
		t.Errorf("/slow = %+v, want mean 3100 over 2", pages[1])
	}
}

func TestPages_UnknownMetric(t *testing.T) {
	if _, err := Pages(nil, "ttfb", 0.75); err == nil {
		t.Error("Pages() with unknown metric should return an error")
	}
}

func TestDistribute(t *testing.T) {
	th := Threshold{Success: 100, Fail: 300}
	records := []record.Record{
		{Value: 50}, {Value: 100}, {Value: 200}, {Value: 300},
	}

	d := Distribute(records, th)
	if d.Count != 4 || d.Good != 2 || d.NeedsImprovement != 1 || d.Poor != 1 {
		t.Fatalf("Distribute() counts = %+v", d)
	}

	want := []Bar{
		{Rating: RatingGood, Percentage: 50, Cumulative: 0},
		{Rating: RatingNeedsImprovement, Percentage: 25, Cumulative: 50},
		{Rating: RatingPoor, Percentage: 25, Cumulative: 75},
	}
	for i := range want {
		if d.Bars[i] != want[i] {
			t.Errorf("Bars[%d] = %+v, want %+v", i, d.Bars[i], want[i])
		}
	}
}

func TestDistribute_NoDataIsNaN(t *testing.T) {
	d := Distribute(nil, Threshold{Success: 1, Fail: 2})
	for _, b := range d.Bars {
		if !math.IsNaN(b.Percentage) {
			t.Errorf("bar %v percentage = %v, want NaN", b.Rating, b.Percentage)
		}
	}
}

func TestSummarize(t *testing.T) {
	records := []record.Record{
		{Context: "production", Value: 42},
		{Context: "cms", Value: 60},
	}

	prod := Summarize(records, "production")
	if prod.Mean != 42 || prod.Rating.Alert() != "warning" {
		t.Errorf("production summary = %+v", prod)
	}

	cms := Summarize(records, "cms")
	if cms.Mean != 60 || cms.Rating.Alert() != "error" {
		t.Errorf("cms summary = %+v", cms)
	}

	preview := Summarize(records, "deploy-preview")
	if !math.IsNaN(preview.Mean) || preview.Rating != RatingUnavailable {
		t.Errorf("empty summary = %+v, want NaN/unavailable", preview)
	}
}

func TestHistogram_DomainCoversKPILines(t *testing.T) {
	bins, err := Histogram([]float64{10, 20}, "production", 5)
	if err != nil {
		t.Fatalf("Histogram() error = %v", err)
	}
	if bins[len(bins)-1].Upper != MinAxis("production") {
		t.Errorf("domain max = %v, want %v", bins[len(bins)-1].Upper, MinAxis("production"))
	}

	bins, err = Histogram([]float64{10, 120}, "production", 5)
	if err != nil {
		t.Fatalf("Histogram() error = %v", err)
	}
	if bins[len(bins)-1].Upper != 120 || bins[len(bins)-1].Count != 1 {
		t.Errorf("last bin = %+v, want upper 120 holding the max value", bins[len(bins)-1])
	}
}
