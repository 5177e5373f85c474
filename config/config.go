// Package config provides YAML configuration parsing for vitalboard.
//
// This package enables running vitalboard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Site health
//	port: 8080
//	poll_interval: 15m
//	cache_path: /var/lib/vitalboard/cache.db
//
//	feeds:
//	  - name: builds
//	    kind: builds
//	    url: https://api.example.com/builds
//	    periods_url: https://api.example.com/builds/months
//	    decoder: builds
//	    headers:
//	      Authorization: Bearer ${API_TOKEN}
//
//	  - name: vitals
//	    kind: vitals
//	    postgres:
//	      dsn: ${DATABASE_URL}
//
//	grids:
//	  - name: Vitals
//	    kind: vitals
//	    url_template: "https://{{.site}}/api/vitals"
//	    periods_url_template: "https://{{.site}}/api/vitals/months"
//	    dimensions:
//	      site: [shop.example.com, blog.example.com]
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"regexp"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/record"
)

// minPollInterval is the minimum allowed poll interval. Upstream APIs are
// refreshed in whole months, so anything faster only adds load.
const minPollInterval = 1 * time.Second

// Defaults applied by [Parse].
const (
	DefaultPort         = 8080
	DefaultPollInterval = 15 * time.Minute
	DefaultDebounce     = 250 * time.Millisecond
)

// Config is the root configuration structure for vitalboard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "vitalboard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is how often periods listings and watched months are
	// refreshed. Defaults to 15m.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxConcurrency limits concurrent fetches. Zero keeps the SDK default.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Dispatch is "breadth-first" (default) or "depth-first".
	Dispatch string `yaml:"dispatch"`

	// Debounce delays panel recomputes. Nil means 250ms; "0s" recomputes
	// on every change.
	Debounce *Duration `yaml:"debounce"`

	// Percentile is the vitals outlier cut-off in (0, 1]. Zero keeps the
	// default of 0.75.
	Percentile float64 `yaml:"percentile"`

	// HistogramBuckets is the histogram bucket count. Zero keeps 20.
	HistogramBuckets int `yaml:"histogram_buckets"`

	// CachePath enables the on-disk cache of completed months.
	CachePath string `yaml:"cache_path"`

	// Feeds defines individual feeds.
	Feeds []FeedConfig `yaml:"feeds"`

	// Grids defines feed grids that expand via cartesian product.
	Grids []GridConfig `yaml:"grids"`
}

// FeedConfig defines a single feed.
type FeedConfig struct {
	// Name is the feed name, unique across the config.
	Name string `yaml:"name"`

	// Kind is "builds" or "vitals".
	Kind string `yaml:"kind"`

	// Scope is the store scope. Defaults to name + "_".
	Scope string `yaml:"scope"`

	// URL is the records endpoint. Required unless Postgres is set.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url"`

	// PeriodsURL lists the months that have data. Required with URL.
	PeriodsURL string `yaml:"periods_url"`

	// Timeout is the request timeout. Defaults to 30s.
	Timeout Duration `yaml:"timeout"`

	// Interval overrides poll_interval for this feed. Must be between 1s
	// and 24h.
	Interval Duration `yaml:"interval"`

	// Headers are sent with every request. Values support environment
	// variable substitution.
	Headers map[string]string `yaml:"headers"`

	// Labels are metadata key-value pairs.
	Labels map[string]string `yaml:"labels"`

	// Decoder selects how responses are decoded.
	Decoder DecoderConfig `yaml:"decoder"`

	// Postgres reads records from the database instead of HTTP.
	Postgres *PostgresConfig `yaml:"postgres"`
}

// PostgresConfig reads a feed's records from Postgres.
type PostgresConfig struct {
	// DSN is the connection string. Supports environment variable
	// substitution.
	DSN string `yaml:"dsn"`

	// Metrics restricts vitals queries. Defaults to lcp, fid and cls.
	Metrics []string `yaml:"metrics"`

	// BatchSize is the number of vitals rows read per query.
	BatchSize int `yaml:"batch_size"`
}

// GridConfig defines a feed grid that expands via cartesian product.
//
// For example, with dimensions {site: [shop, blog], env: [prod, staging]},
// the grid expands to 4 feeds, each with its own dashboard scope.
type GridConfig struct {
	// Name is the base name for generated feeds.
	Name string `yaml:"name"`

	// Kind is "builds" or "vitals".
	Kind string `yaml:"kind"`

	// URLTemplate is a Go template for the records URL. Dimension keys are
	// available as template variables: {{.site}}, {{.env}}
	URLTemplate string `yaml:"url_template"`

	// PeriodsURLTemplate is a Go template for the periods listing URL.
	PeriodsURLTemplate string `yaml:"periods_url_template"`

	// Dimensions maps dimension names to their possible values.
	Dimensions map[string][]string `yaml:"dimensions"`

	Timeout  Duration          `yaml:"timeout"`
	Interval Duration          `yaml:"interval"`
	Headers  map[string]string `yaml:"headers"`

	// Labels are merged with the auto-generated dimension labels.
	Labels map[string]string `yaml:"labels"`

	Decoder DecoderConfig `yaml:"decoder"`
}

// DecoderConfig specifies how record responses are decoded.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	decoder: builds
//	decoder: vitals
//	decoder: default
//
// Structured object:
//
//	decoder:
//	  type: fields
//	  items: result.rows
//	  context: [env]
//	  value: [secs]
//	  timestamp: [at]
type DecoderConfig struct {
	// Type is "default", "builds", "vitals" or "fields".
	Type string

	// Items, Context, Value, Timestamp and Path are the dot paths of a
	// "fields" decoder.
	Items     string
	Context   []string
	Value     []string
	Timestamp []string
	Path      []string
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for DecoderConfig.
func (dc *DecoderConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		switch s {
		case "", "default", "builds", "vitals":
			dc.Type = s
			return nil
		default:
			return fmt.Errorf("unknown decoder %q (expected 'default', 'builds', 'vitals' or a fields object)", s)
		}

	case yaml.MappingNode:
		// temporary struct to avoid infinite recursion
		var raw struct {
			Type      string   `yaml:"type"`
			Items     string   `yaml:"items"`
			Context   []string `yaml:"context"`
			Value     []string `yaml:"value"`
			Timestamp []string `yaml:"timestamp"`
			Path      []string `yaml:"path"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*dc = DecoderConfig{
			Type:      raw.Type,
			Items:     raw.Items,
			Context:   raw.Context,
			Value:     raw.Value,
			Timestamp: raw.Timestamp,
			Path:      raw.Path,
		}
		if dc.Type == "" {
			dc.Type = "fields"
		}
		return nil
	}

	return fmt.Errorf("decoder must be a string or object, got %v", node.Kind)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in the file are expanded before parsing.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in URLs, URL templates, header values,
// Postgres DSNs and the cache path. Defaults are applied for Port (8080),
// PollInterval (15m) and Debounce (250ms).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = Duration(DefaultPollInterval)
	}
	if cfg.Debounce == nil {
		d := Duration(DefaultDebounce)
		cfg.Debounce = &d
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency cannot be negative, got %d", c.MaxConcurrency)
	}
	if _, err := store.ParseDispatchMode(c.Dispatch); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if c.Debounce.Duration() < 0 {
		return fmt.Errorf("debounce cannot be negative, got %s", c.Debounce.Duration())
	}
	if math.IsNaN(c.Percentile) || c.Percentile < 0 || c.Percentile > 1 {
		return fmt.Errorf("percentile must be in (0, 1], got %v", c.Percentile)
	}
	if c.HistogramBuckets < 0 {
		return fmt.Errorf("histogram_buckets cannot be negative, got %d", c.HistogramBuckets)
	}
	if c.CachePath != "" {
		expanded, err := expandEnvVars(c.CachePath)
		if err != nil {
			return fmt.Errorf("cache_path: %w", err)
		}
		c.CachePath = expanded
	}

	names := make(map[string]string)
	for i := range c.Feeds {
		f := &c.Feeds[i]
		where := fmt.Sprintf("feeds[%d] (%s)", i, f.Name)

		if f.Name == "" {
			return fmt.Errorf("feeds[%d]: name is required", i)
		}
		if prev, dup := names[f.Name]; dup {
			return fmt.Errorf("%s: name already used by %s", where, prev)
		}
		names[f.Name] = where

		if err := validateKind(f.Kind, where); err != nil {
			return err
		}

		if f.Postgres != nil {
			if f.URL != "" || f.PeriodsURL != "" {
				return fmt.Errorf("%s: url and periods_url cannot be combined with postgres", where)
			}
			dsn, err := expandEnvVars(f.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("%s: postgres.dsn: %w", where, err)
			}
			if dsn == "" {
				return fmt.Errorf("%s: postgres.dsn is required", where)
			}
			f.Postgres.DSN = dsn
			if f.Postgres.BatchSize < 0 {
				return fmt.Errorf("%s: postgres.batch_size cannot be negative", where)
			}
		} else {
			if f.URL == "" {
				return fmt.Errorf("%s: url is required", where)
			}
			if f.PeriodsURL == "" {
				return fmt.Errorf("%s: periods_url is required", where)
			}
			var err error
			if f.URL, err = expandURL(f.URL, where, "url"); err != nil {
				return err
			}
			if f.PeriodsURL, err = expandURL(f.PeriodsURL, where, "periods_url"); err != nil {
				return err
			}
		}

		if err := expandHeaders(f.Headers, where); err != nil {
			return err
		}
		if err := validateTimeouts(f.Timeout, f.Interval, where); err != nil {
			return err
		}
		if err := validateDecoder(f.Decoder, where); err != nil {
			return err
		}
	}

	for i := range c.Grids {
		g := &c.Grids[i]
		where := fmt.Sprintf("grids[%d] (%s)", i, g.Name)

		if g.Name == "" {
			return fmt.Errorf("grids[%d]: name is required", i)
		}
		if err := validateKind(g.Kind, where); err != nil {
			return err
		}

		var err error
		if g.URLTemplate, err = expandTemplate(g.URLTemplate, where, "url_template"); err != nil {
			return err
		}
		if g.PeriodsURLTemplate, err = expandTemplate(g.PeriodsURLTemplate, where, "periods_url_template"); err != nil {
			return err
		}

		if len(g.Dimensions) == 0 {
			return fmt.Errorf("%s: at least one dimension is required", where)
		}
		for dimName, dimValues := range g.Dimensions {
			if len(dimValues) == 0 {
				return fmt.Errorf("%s: dimension %q has no values", where, dimName)
			}
			seen := make(map[string]struct{}, len(dimValues))
			for _, v := range dimValues {
				if _, exists := seen[v]; exists {
					return fmt.Errorf("%s: dimension %q has duplicate value %q", where, dimName, v)
				}
				seen[v] = struct{}{}
			}
		}

		if err := expandHeaders(g.Headers, where); err != nil {
			return err
		}
		if err := validateTimeouts(g.Timeout, g.Interval, where); err != nil {
			return err
		}
		if err := validateDecoder(g.Decoder, where); err != nil {
			return err
		}
	}

	if len(c.Feeds) == 0 && len(c.Grids) == 0 {
		return errors.New("at least one feed or grid must be defined")
	}

	return nil
}

func validateKind(kind, where string) error {
	if kind != record.KindBuilds && kind != record.KindVitals {
		return fmt.Errorf("%s: kind must be %q or %q, got %q", where, record.KindBuilds, record.KindVitals, kind)
	}
	return nil
}

// expandURL expands environment variables in raw and checks it is an
// http(s) URL.
func expandURL(raw, where, field string) (string, error) {
	expanded, err := expandEnvVars(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", where, field, err)
	}

	parsed, err := url.Parse(expanded)
	if err != nil {
		return "", fmt.Errorf("%s: %s: invalid url: %w", where, field, err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("%s: %s: url must have a scheme (http:// or https://)", where, field)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%s: %s: url scheme must be http or https, got %q", where, field, parsed.Scheme)
	}
	return expanded, nil
}

func expandTemplate(raw, where, field string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%s: %s is required", where, field)
	}
	expanded, err := expandEnvVars(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %s: %w", where, field, err)
	}
	// fail fast before the SDK tries to use an invalid template
	if _, err := template.New("").Parse(expanded); err != nil {
		return "", fmt.Errorf("%s: invalid %s: %w", where, field, err)
	}
	return expanded, nil
}

func expandHeaders(headers map[string]string, where string) error {
	for k, v := range headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("%s: headers[%s]: %w", where, k, err)
		}
		headers[k] = expanded
	}
	return nil
}

func validateTimeouts(timeout, interval Duration, where string) error {
	if timeout != 0 {
		if timeout.Duration() < 0 {
			return fmt.Errorf("%s: timeout cannot be negative, got %s", where, timeout.Duration())
		}
		if timeout.Duration() < time.Second {
			return fmt.Errorf("%s: timeout must be at least 1s if specified, got %s", where, timeout.Duration())
		}
	}
	if interval != 0 {
		if interval.Duration() < time.Second {
			return fmt.Errorf("%s: interval must be at least 1s, got %s", where, interval.Duration())
		}
		if interval.Duration() > 24*time.Hour {
			return fmt.Errorf("%s: interval must not exceed 24h, got %s", where, interval.Duration())
		}
	}
	return nil
}

// validateDecoder validates a decoder configuration.
func validateDecoder(d DecoderConfig, where string) error {
	switch d.Type {
	case "", "default", "builds", "vitals":
		return nil
	case "fields":
		if len(d.Context) == 0 {
			return fmt.Errorf("%s: decoder type 'fields' requires context paths", where)
		}
		if len(d.Value) == 0 {
			return fmt.Errorf("%s: decoder type 'fields' requires value paths", where)
		}
		return nil
	default:
		return fmt.Errorf("%s: unknown decoder type %q", where, d.Type)
	}
}
