package pipeline

import (
	"math"
	"testing"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		value, total, want float64
	}{
		{1, 3, 33.3},
		{2, 3, 66.7},
		{0, 5, 0},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := Percentage(tt.value, tt.total); got != tt.want {
			t.Errorf("Percentage(%v, %v) = %v, want %v", tt.value, tt.total, got, tt.want)
		}
	}
}

func TestPercentage_ZeroTotalIsNaN(t *testing.T) {
	if got := Percentage(0, 0); !math.IsNaN(got) {
		t.Errorf("Percentage(0, 0) = %v, want NaN", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{42}); got != 42 {
		t.Errorf("Mean([42]) = %v", got)
	}
	if got := Mean([]float64{10, 20, 30}); got != 20 {
		t.Errorf("Mean() = %v, want 20", got)
	}
	if got := Mean(nil); !math.IsNaN(got) {
		t.Errorf("Mean(nil) = %v, want NaN", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(1.23456, 4); got != 1.2346 {
		t.Errorf("Round() = %v, want 1.2346", got)
	}
	if got := Round(math.NaN(), 2); !math.IsNaN(got) {
		t.Errorf("Round(NaN) = %v, want NaN", got)
	}
}
