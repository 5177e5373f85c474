package vitalboard

import (
	"errors"
	"time"
)

// feedConfig holds mutable state during feed construction.
type feedConfig struct {
	scope      string
	periodsURL string
	labels     map[string]string
	headers    map[string]string
	timeout    time.Duration
	interval   time.Duration
	decoder    Decoder
	source     Source
}

// FeedOption configures a [Feed] during construction. Options return an
// error if validation fails.
type FeedOption func(*feedConfig) error

// WithScope sets the store scope the feed writes to. Two feeds of one board
// must not share a scope.
func WithScope(scope string) FeedOption {
	return func(cfg *feedConfig) error {
		if scope == "" {
			return errors.New("scope cannot be empty")
		}
		cfg.scope = scope
		return nil
	}
}

// WithPeriodsURL sets the URL listing the months that have data. The
// response must be a JSON array of {"year": 2024, "month_numbers": [1, 2]}.
func WithPeriodsURL(rawURL string) FeedOption {
	return func(cfg *feedConfig) error {
		if err := validateURL(rawURL); err != nil {
			return err
		}
		cfg.periodsURL = rawURL
		return nil
	}
}

// WithLabels adds metadata labels to the feed.
//
// Accepts variadic key-value pairs. Returns an error if an odd number of
// arguments is provided.
func WithLabels(keyValues ...string) FeedOption {
	return func(cfg *feedConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.labels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithHeaders adds HTTP headers sent with every request for this feed,
// typically an API key.
//
// Accepts variadic key-value pairs. Returns an error if an odd number of
// arguments is provided.
func WithHeaders(keyValues ...string) FeedOption {
	return func(cfg *feedConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout. Defaults to 30 seconds.
func WithTimeout(d time.Duration) FeedOption {
	return func(cfg *feedConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithInterval sets how often the feed's periods listing and watched month
// are refreshed, overriding the board's poll interval.
//
// The interval must be at least 1 second and at most 24 hours.
func WithInterval(d time.Duration) FeedOption {
	return func(cfg *feedConfig) error {
		if d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		if d > 24*time.Hour {
			return errors.New("interval must not exceed 24 hours")
		}
		cfg.interval = d
		return nil
	}
}

// WithDecoder sets how record responses are decoded.
func WithDecoder(d Decoder) FeedOption {
	return func(cfg *feedConfig) error {
		cfg.decoder = d
		return nil
	}
}

// WithSource reads the feed's records from src instead of HTTP. The URL
// passed to [NewFeed] may then be empty.
func WithSource(src Source) FeedOption {
	return func(cfg *feedConfig) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		cfg.source = src
		return nil
	}
}
