package vitalboard

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"text/template"
)

// NewFeedGrid creates one feed per combination of dimension values, each
// with its own dashboard scope. Use it for several sites or environments
// on one page.
//
// The URL templates use Go's text/template syntax. Dimension values are
// URL-encoded before interpolation. Missing template keys cause an error.
//
// Each feed is named "Base Name (val1/val2)" (values from alphabetically
// sorted keys) and scoped by a slug of that name, e.g. "builds-prod_".
// Labels are added from dimension values; static labels from
// [WithGridLabels] take precedence on collision.
//
// Example:
//
//	feeds, err := vitalboard.NewFeedGrid("builds", vitalboard.KindBuilds,
//	    vitalboard.WithURLTemplate("https://{{.site}}/api/builds"),
//	    vitalboard.WithPeriodsURLTemplate("https://{{.site}}/api/builds/months"),
//	    vitalboard.WithDimensions(map[string][]string{
//	        "site": {"shop.example.com", "blog.example.com"},
//	    }),
//	)
func NewFeedGrid(baseName, kind string, opts ...GridOption) ([]Feed, error) {
	if strings.TrimSpace(baseName) == "" {
		return nil, errors.New("base name cannot be empty")
	}

	cfg := &gridConfig{
		staticLabels: make(map[string]string),
		headers:      make(map[string]string),
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.urlTemplate == "" {
		return nil, errors.New("URL template required")
	}
	if cfg.periodsTemplate == "" {
		return nil, errors.New("periods URL template required")
	}
	if len(cfg.dimensions) == 0 {
		return nil, errors.New("at least one dimension required")
	}

	// missingkey=error fails fast on typos in the template
	urlTmpl, err := template.New("url").Option("missingkey=error").Parse(cfg.urlTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid URL template: %w", err)
	}
	periodsTmpl, err := template.New("periods").Option("missingkey=error").Parse(cfg.periodsTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid periods URL template: %w", err)
	}

	combinations := cartesianProduct(cfg.dimensions)
	if len(combinations) == 0 {
		return nil, nil
	}

	feeds := make([]Feed, 0, len(combinations))
	for _, combo := range combinations {
		encoded := urlEncodeMap(combo)

		urlStr, err := executeTemplate(urlTmpl, encoded)
		if err != nil {
			return nil, fmt.Errorf("template execution failed: %w", err)
		}
		periodsStr, err := executeTemplate(periodsTmpl, encoded)
		if err != nil {
			return nil, fmt.Errorf("periods template execution failed: %w", err)
		}

		name := formatFeedName(baseName, combo)
		labels := mergeMaps(combo, cfg.staticLabels)

		feedOpts := []FeedOption{
			WithScope(slug(name) + "_"),
			WithPeriodsURL(periodsStr),
			WithLabels(flattenMap(labels)...),
		}
		if len(cfg.headers) > 0 {
			feedOpts = append(feedOpts, WithHeaders(flattenMap(cfg.headers)...))
		}
		if cfg.timeout > 0 {
			feedOpts = append(feedOpts, WithTimeout(cfg.timeout))
		}
		if cfg.interval > 0 {
			feedOpts = append(feedOpts, WithInterval(cfg.interval))
		}
		if cfg.decoder != nil {
			feedOpts = append(feedOpts, WithDecoder(cfg.decoder))
		}

		feed, err := NewFeed(name, kind, urlStr, feedOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create feed '%s': %w", name, err)
		}
		feeds = append(feeds, feed)
	}

	return feeds, nil
}

// cartesianProduct generates all combinations of dimension values.
// Keys are sorted alphabetically for deterministic output.
// Values maintain their original slice order.
//
// Example:
//
//	Input:  {"x": ["a","b"], "y": ["1","2"]}
//	Output: [{"x":"a","y":"1"}, {"x":"a","y":"2"}, {"x":"b","y":"1"}, {"x":"b","y":"2"}]
func cartesianProduct(dims map[string][]string) []map[string]string {
	if len(dims) == 0 {
		return nil
	}

	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if len(dims[k]) == 0 {
			return nil
		}
	}

	total := 1
	for _, k := range keys {
		total *= len(dims[k])
	}
	result := make([]map[string]string, 0, total)

	indices := make([]int, len(keys))
	for {
		combo := make(map[string]string, len(keys))
		for i, k := range keys {
			combo[k] = dims[k][indices[i]]
		}
		result = append(result, combo)

		// increment indices (rightmost first)
		for i := len(keys) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(dims[keys[i]]) {
				break
			}
			indices[i] = 0
			if i == 0 {
				return result
			}
		}
	}
}

// urlEncodeMap returns a new map with all values URL-encoded.
func urlEncodeMap(m map[string]string) map[string]string {
	result := make(map[string]string, len(m))
	for k, v := range m {
		result[k] = url.QueryEscape(v)
	}
	return result
}

func executeTemplate(tmpl *template.Template, data map[string]string) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatFeedName creates a name in the format "Base (v1/v2)".
func formatFeedName(baseName string, combo map[string]string) string {
	keys := make([]string, 0, len(combo))
	for k := range combo {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = combo[k]
	}
	return fmt.Sprintf("%s (%s)", baseName, strings.Join(parts, "/"))
}

// slug lowercases s and collapses every run of other characters than
// letters and digits into a single hyphen.
func slug(s string) string {
	var b strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen && b.Len() > 0 {
			b.WriteByte('-')
			hyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// mergeMaps merges multiple maps, with later maps taking precedence.
func mergeMaps(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

// flattenMap converts a map to sorted key-value pairs for variadic options.
func flattenMap(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(m)*2)
	for _, k := range keys {
		result = append(result, k, m[k])
	}
	return result
}
