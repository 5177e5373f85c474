package mockapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/jpalmerr/vitalboard"
)

func testAPI(now time.Time) *API {
	return New(func() time.Time { return now }, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPeriods_SpansYearBoundary(t *testing.T) {
	api := testAPI(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC))

	got := api.Periods()
	want := []YearMonths{
		{Year: 2023, MonthNumbers: []int{11, 12}},
		{Year: 2024, MonthNumbers: []int{1, 2}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Periods() = %v, want %v", got, want)
	}
}

func TestBuilds_Deterministic(t *testing.T) {
	api := testAPI(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	a := api.Builds("shop", 2024, 1)
	b := api.Builds("shop", 2024, 1)
	if !reflect.DeepEqual(a, b) {
		t.Error("Builds() should return the same rows for the same month")
	}
	if len(a) == 0 {
		t.Fatal("Builds() returned no rows for a past month")
	}
	if reflect.DeepEqual(a, api.Builds("blog", 2024, 1)) {
		t.Error("different sites should get different rows")
	}
}

func TestDays(t *testing.T) {
	api := testAPI(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		year, month, want int
	}{
		{2024, 1, 31},
		{2024, 2, 10},
		{2024, 3, 0},
		{2023, 2, 28},
	}
	for _, tt := range tests {
		if got := api.days(tt.year, tt.month); got != tt.want {
			t.Errorf("days(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestHandler_RowsDecodeWithSDKDecoders(t *testing.T) {
	api := testAPI(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC))
	ts := httptest.NewServer(api.Handler())
	defer ts.Close()

	tests := []struct {
		path    string
		decoder vitalboard.Decoder
	}{
		{"/shop/builds?year=2024&month=1", vitalboard.BuildDecoder},
		{"/shop/vitals?year=2024&month=1", vitalboard.VitalsDecoder},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET error = %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			records, err := tt.decoder(body)
			if err != nil {
				t.Fatalf("decoder error = %v", err)
			}
			if len(records) == 0 {
				t.Fatal("no records")
			}
			if records[0].Date[:7] != "2024-01" {
				t.Errorf("Date = %q, want January 2024", records[0].Date)
			}
		})
	}
}

func TestHandler_Months(t *testing.T) {
	api := testAPI(time.Date(2024, 2, 10, 12, 0, 0, 0, time.UTC))
	ts := httptest.NewServer(api.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/shop/vitals/months")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	var got []YearMonths
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(got) != 2 || got[1].Year != 2024 {
		t.Errorf("months = %v", got)
	}
}

func TestHandler_BadPeriod(t *testing.T) {
	ts := httptest.NewServer(testAPI(time.Now()).Handler())
	defer ts.Close()

	for _, path := range []string{"/shop/builds", "/shop/builds?year=2024&month=13"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, resp.StatusCode)
		}
	}
}
