package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/jpalmerr/vitalboard/record"
)

// ErrNoPeriodsURL is returned by [HTTPSource.Periods] when the source has no
// periods listing configured.
var ErrNoPeriodsURL = errors.New("no periods url configured")

// Source fetches raw records for a month and lists the months that have data.
type Source interface {
	Records(ctx context.Context, period record.Period) ([]record.Record, error)
	Periods(ctx context.Context) ([]record.YearMonths, error)
}

// RecordDecoder turns a response body into records.
//
// This is the poller-internal form of vitalboard.Decoder, avoiding an import
// cycle with the root package.
type RecordDecoder func(body []byte) ([]record.Record, error)

// HTTPSource is a [Source] backed by a JSON HTTP API.
//
// Records are requested from URL with year and month query parameters. The
// periods listing is requested from PeriodsURL and must decode as a JSON
// array of {"year": 2024, "month_numbers": [1, 2]}.
type HTTPSource struct {
	Client     *Client
	URL        string
	PeriodsURL string
	Headers    map[string]string
	Timeout    time.Duration
	Decoder    RecordDecoder
}

// Records fetches the records for period.
func (h *HTTPSource) Records(ctx context.Context, period record.Period) ([]record.Record, error) {
	target, err := withPeriod(h.URL, period)
	if err != nil {
		return nil, err
	}

	body, err := h.get(ctx, target)
	if err != nil {
		return nil, err
	}
	if h.Decoder == nil {
		return nil, errors.New("no decoder configured")
	}
	records, err := h.Decoder(body)
	if err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// Periods fetches the periods listing.
func (h *HTTPSource) Periods(ctx context.Context) ([]record.YearMonths, error) {
	if h.PeriodsURL == "" {
		return nil, ErrNoPeriodsURL
	}

	body, err := h.get(ctx, h.PeriodsURL)
	if err != nil {
		return nil, err
	}

	var periods []record.YearMonths
	if err := json.Unmarshal(body, &periods); err != nil {
		return nil, fmt.Errorf("decode periods: %w", err)
	}
	return periods, nil
}

func (h *HTTPSource) get(ctx context.Context, target string) ([]byte, error) {
	client := h.Client
	if client == nil {
		client = NewClient()
	}

	resp := client.Fetch(ctx, target, h.Headers, h.Timeout)
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}
	return resp.Body, nil
}

// withPeriod sets the year and month query parameters on raw.
func withPeriod(raw string, period record.Period) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	q := u.Query()
	q.Set("year", strconv.Itoa(period.Year))
	q.Set("month", strconv.Itoa(period.Month))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
