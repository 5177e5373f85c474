package poller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jpalmerr/vitalboard/record"
)

func jsonDecoder(body []byte) ([]record.Record, error) {
	var records []record.Record
	err := json.Unmarshal(body, &records)
	return records, err
}

func TestHTTPSource_Records(t *testing.T) {
	var gotYear, gotMonth, gotFn string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotYear = r.URL.Query().Get("year")
		gotMonth = r.URL.Query().Get("month")
		gotFn = r.Header.Get("Function-Name")
		_, _ = w.Write([]byte(`[{"context":"production","value":42}]`))
	}))
	defer server.Close()

	src := &HTTPSource{
		Client:  NewClient(),
		URL:     server.URL + "/api?site=docs",
		Headers: map[string]string{"Function-Name": "netlify_build_data_for_year_and_month"},
		Timeout: time.Second,
		Decoder: jsonDecoder,
	}

	records, err := src.Records(context.Background(), record.Period{Year: 2024, Month: 1})
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 1 || records[0].Value != 42 {
		t.Errorf("Records() = %+v", records)
	}
	if gotYear != "2024" || gotMonth != "1" {
		t.Errorf("query year=%q month=%q, want 2024 and 1", gotYear, gotMonth)
	}
	if gotFn != "netlify_build_data_for_year_and_month" {
		t.Errorf("Function-Name = %q", gotFn)
	}
}

func TestHTTPSource_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	period := record.Period{Year: 2024, Month: 2}

	tests := []struct {
		name string
		src  *HTTPSource
	}{
		{"non-2xx status", &HTTPSource{URL: server.URL + "/broken", Decoder: jsonDecoder}},
		{"decode failure", &HTTPSource{URL: server.URL, Decoder: jsonDecoder}},
		{"no decoder", &HTTPSource{URL: server.URL}},
		{"bad url", &HTTPSource{URL: "://bad", Decoder: jsonDecoder}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.src.Records(context.Background(), period); err == nil {
				t.Error("Records() expected error")
			}
		})
	}
}

func TestHTTPSource_Periods(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"year":2023,"month_numbers":[11,12]},{"year":2024,"month_numbers":[1,2]}]`))
	}))
	defer server.Close()

	src := &HTTPSource{PeriodsURL: server.URL}
	periods, err := src.Periods(context.Background())
	if err != nil {
		t.Fatalf("Periods() error = %v", err)
	}
	if len(periods) != 2 || periods[1].Year != 2024 || len(periods[1].MonthNumbers) != 2 {
		t.Errorf("Periods() = %+v", periods)
	}

	_, err = (&HTTPSource{}).Periods(context.Background())
	if !errors.Is(err, ErrNoPeriodsURL) {
		t.Errorf("Periods() without url error = %v, want ErrNoPeriodsURL", err)
	}
}
