package pipeline

import (
	"errors"
	"math"
	"testing"
)

func TestBucket(t *testing.T) {
	bins, err := Bucket([]float64{0, 1, 2.5, 4.9, 5, 9.99}, 10, 2)
	if err != nil {
		t.Fatalf("Bucket() error = %v", err)
	}
	if len(bins) != 2 {
		t.Fatalf("Bucket() returned %d bins, want 2", len(bins))
	}
	if bins[0].Count != 4 {
		t.Errorf("bins[0].Count = %d, want 4", bins[0].Count)
	}
	if bins[1].Count != 2 {
		t.Errorf("bins[1].Count = %d, want 2", bins[1].Count)
	}
	if bins[0].Lower != 0 || bins[0].Upper != 5 || bins[1].Upper != 10 {
		t.Errorf("bin edges = %+v", bins)
	}
}

func TestBucket_MaxValueFallsInLastBucket(t *testing.T) {
	bins, err := Bucket([]float64{10}, 10, 4)
	if err != nil {
		t.Fatalf("Bucket() error = %v", err)
	}
	if bins[3].Count != 1 {
		t.Errorf("value equal to max should be in last bucket, bins = %+v", bins)
	}
}

func TestBucket_ClampsOutOfDomain(t *testing.T) {
	bins, err := Bucket([]float64{-3, 25, math.NaN()}, 10, 5)
	if err != nil {
		t.Fatalf("Bucket() error = %v", err)
	}
	if bins[0].Count != 1 {
		t.Errorf("negative value should clamp to first bucket, got %d", bins[0].Count)
	}
	if bins[4].Count != 1 {
		t.Errorf("value above max should clamp to last bucket, got %d", bins[4].Count)
	}

	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 2 {
		t.Errorf("total count = %d, want 2 (NaN ignored)", total)
	}
}

func TestBucket_ZeroDomain(t *testing.T) {
	bins, err := Bucket([]float64{0, 0}, 0, 3)
	if err != nil {
		t.Fatalf("Bucket() error = %v", err)
	}
	if bins[2].Count != 2 {
		t.Errorf("bins = %+v, want both values in last bucket", bins)
	}
}

func TestBucket_InvalidArguments(t *testing.T) {
	if _, err := Bucket(nil, 10, 0); !errors.Is(err, ErrInvalidBucketCount) {
		t.Errorf("n=0 error = %v, want ErrInvalidBucketCount", err)
	}
	if _, err := Bucket(nil, -1, 3); !errors.Is(err, ErrInvalidDomain) {
		t.Errorf("max=-1 error = %v, want ErrInvalidDomain", err)
	}
	if _, err := Bucket(nil, math.Inf(1), 3); !errors.Is(err, ErrInvalidDomain) {
		t.Errorf("max=+Inf error = %v, want ErrInvalidDomain", err)
	}
}
