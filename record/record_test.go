package record

import (
	"testing"
	"time"
)

func TestRecord_WithDate(t *testing.T) {
	r := Record{Context: "lcp", Timestamp: time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)}

	got := r.WithDate()
	if got.Date != "2024-03-09" {
		t.Errorf("WithDate().Date = %q, want %q", got.Date, "2024-03-09")
	}
	if r.Date != "" {
		t.Error("WithDate() must not modify the receiver")
	}

	preset := Record{Date: "2024-01-01", Timestamp: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)}
	if got := preset.WithDate(); got.Date != "2024-01-01" {
		t.Errorf("WithDate() overwrote existing date: %q", got.Date)
	}
}

func TestPeriod_Range(t *testing.T) {
	tests := []struct {
		name      string
		period    Period
		wantStart string
		wantEnd   string
	}{
		{"mid year", Period{Year: 2024, Month: 5}, "2024-05-01", "2024-06-01"},
		{"december rolls over", Period{Year: 2023, Month: 12}, "2023-12-01", "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.period.Range()
			if got := start.Format(time.DateOnly); got != tt.wantStart {
				t.Errorf("start = %s, want %s", got, tt.wantStart)
			}
			if got := end.Format(time.DateOnly); got != tt.wantEnd {
				t.Errorf("end = %s, want %s", got, tt.wantEnd)
			}
		})
	}
}

func TestPeriod_KeyAndString(t *testing.T) {
	p := Period{Year: 2024, Month: 1}
	if p.Key() != "20241" {
		t.Errorf("Key() = %q, want %q", p.Key(), "20241")
	}
	if p.String() != "2024-01" {
		t.Errorf("String() = %q, want %q", p.String(), "2024-01")
	}
	if !p.Valid() {
		t.Error("Valid() = false, want true")
	}
	if (Period{Year: 2024, Month: 13}).Valid() {
		t.Error("Valid() = true for month 13")
	}
}

func TestPeriodOf(t *testing.T) {
	got := PeriodOf(time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC))
	if got != (Period{Year: 2024, Month: 2}) {
		t.Errorf("PeriodOf() = %+v", got)
	}
}

func TestYearMonths_Latest(t *testing.T) {
	ym := YearMonths{Year: 2024, MonthNumbers: []int{1, 2, 7}}
	p, ok := ym.Latest()
	if !ok || p != (Period{Year: 2024, Month: 7}) {
		t.Errorf("Latest() = %+v, %v", p, ok)
	}

	if _, ok := (YearMonths{Year: 2024}).Latest(); ok {
		t.Error("Latest() on empty months should be false")
	}
}
