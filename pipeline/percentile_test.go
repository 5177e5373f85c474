package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/jpalmerr/vitalboard/record"
)

func TestPercentile(t *testing.T) {
	values := []float64{50, 10, 40, 20, 30}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"p75 lands on an element", 0.75, 40},
		{"median", 0.5, 30},
		{"interpolates fractional index", 0.9, 46},
		{"zero clamps to min", 0, 10},
		{"negative clamps to min", -0.5, 10},
		{"one clamps to max", 1, 50},
		{"above one clamps to max", 1.5, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Percentile(values, tt.p)
			if err != nil {
				t.Fatalf("Percentile() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestPercentile_DoesNotModifyInput(t *testing.T) {
	values := []float64{3, 1, 2}
	if _, err := Percentile(values, 0.5); err != nil {
		t.Fatalf("Percentile() error = %v", err)
	}
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input modified: %v", values)
	}
}

func TestPercentile_EmptyInput(t *testing.T) {
	got, err := Percentile(nil, 0.75)
	if err != nil {
		t.Fatalf("Percentile() error = %v", err)
	}
	if got != 0 {
		t.Errorf("Percentile(nil) = %v, want 0", got)
	}
}

func TestPercentile_RejectsMalformedP(t *testing.T) {
	for _, p := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := Percentile([]float64{1, 2}, p); !errors.Is(err, ErrInvalidPercentile) {
			t.Errorf("Percentile(p=%v) error = %v, want ErrInvalidPercentile", p, err)
		}
	}
}

func TestMetricsInPercentile(t *testing.T) {
	records := []record.Record{
		{Context: "lcp", Value: 10},
		{Context: "lcp", Value: 20},
		{Context: "lcp", Value: 30},
		{Context: "lcp", Value: 40},
		{Context: "lcp", Value: 50},
	}

	got, err := MetricsInPercentile(records, ValueField, 0.75)
	if err != nil {
		t.Fatalf("MetricsInPercentile() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("MetricsInPercentile() returned %d records, want 4", len(got))
	}
	for _, r := range got {
		if r.Value > 40 {
			t.Errorf("record with value %v should have been filtered", r.Value)
		}
	}
}

func TestMetricsInPercentile_Empty(t *testing.T) {
	got, err := MetricsInPercentile([]record.Record{}, ValueField, 0.75)
	if err != nil {
		t.Fatalf("MetricsInPercentile() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("MetricsInPercentile([]) = %v, want empty non-nil slice", got)
	}
}

func TestInPercentile_PreservesOrderAndIsDeterministic(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	value := func(i int) float64 { return float64(i) }

	first, err := InPercentile(items, value, 0.5)
	if err != nil {
		t.Fatalf("InPercentile() error = %v", err)
	}
	second, _ := InPercentile(items, value, 0.5)

	want := []int{1, 2, 3}
	if len(first) != len(want) {
		t.Fatalf("InPercentile() = %v, want %v", first, want)
	}
	for i := range want {
		if first[i] != want[i] || second[i] != want[i] {
			t.Errorf("InPercentile()[%d] = %v/%v, want %v", i, first[i], second[i], want[i])
		}
	}
}
