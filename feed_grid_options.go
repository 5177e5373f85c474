package vitalboard

import (
	"errors"
	"fmt"
	"time"
)

// gridConfig holds configuration during feed grid construction.
type gridConfig struct {
	urlTemplate     string
	periodsTemplate string
	dimensions      map[string][]string
	staticLabels    map[string]string
	headers         map[string]string
	timeout         time.Duration
	interval        time.Duration
	decoder         Decoder
}

// GridOption configures [NewFeedGrid].
type GridOption func(*gridConfig) error

// WithURLTemplate sets the records URL template.
//
// Example:
//
//	WithURLTemplate("https://{{.site}}/api/vitals?env={{.env}}")
//
// Returns an error if the template string is empty.
func WithURLTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("URL template required")
		}
		cfg.urlTemplate = tmpl
		return nil
	}
}

// WithPeriodsURLTemplate sets the periods listing URL template.
func WithPeriodsURLTemplate(tmpl string) GridOption {
	return func(cfg *gridConfig) error {
		if tmpl == "" {
			return errors.New("periods URL template required")
		}
		cfg.periodsTemplate = tmpl
		return nil
	}
}

// WithDimensions sets the dimension values for cartesian product expansion.
// Each key becomes a template variable.
//
// Returns an error if the map is empty, any dimension has no values,
// or any value is an empty string.
func WithDimensions(dims map[string][]string) GridOption {
	return func(cfg *gridConfig) error {
		if len(dims) == 0 {
			return errors.New("at least one dimension required")
		}
		for k, vals := range dims {
			if len(vals) == 0 {
				return fmt.Errorf("dimension '%s' has no values", k)
			}
			for i, v := range vals {
				if v == "" {
					return fmt.Errorf("dimension '%s' contains empty value at index %d", k, i)
				}
			}
		}
		cfg.dimensions = dims
		return nil
	}
}

// WithGridLabels adds static labels to all generated feeds. On collision,
// static labels take precedence over dimension labels.
func WithGridLabels(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridLabels requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.staticLabels[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithGridHeaders adds HTTP headers to all generated feeds.
func WithGridHeaders(keyValues ...string) GridOption {
	return func(cfg *gridConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithGridHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithGridTimeout sets the request timeout for all generated feeds. Zero
// keeps the feed default.
func WithGridTimeout(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("timeout cannot be negative")
		}
		cfg.timeout = d
		return nil
	}
}

// WithGridInterval sets the refresh interval for all generated feeds. Zero
// means use the board's poll interval.
func WithGridInterval(d time.Duration) GridOption {
	return func(cfg *gridConfig) error {
		if d < 0 {
			return errors.New("interval cannot be negative")
		}
		if d != 0 && d < time.Second {
			return errors.New("interval must be at least 1 second")
		}
		if d > 24*time.Hour {
			return errors.New("interval must not exceed 24 hours")
		}
		cfg.interval = d
		return nil
	}
}

// WithGridDecoder sets the [Decoder] for all generated feeds.
func WithGridDecoder(d Decoder) GridOption {
	return func(cfg *gridConfig) error {
		cfg.decoder = d
		return nil
	}
}
