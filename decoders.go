package vitalboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/vitalboard/record"
)

// Decoder turns a records response body into records.
//
// Decoders must be pure functions: the same body always yields the same
// records. Several decoders are provided:
//
//   - [BuildDecoder]: Netlify deploy rows {context, deploy_time, created_at}
//   - [VitalsDecoder]: real-user metric rows {metric, data_float, time_stamp, path}
//   - [FieldDecoder]: any JSON array of objects, fields chosen by dot path
//   - [FirstDecoder]: tries decoders in order
//   - [DefaultDecoder]: accepts either row shape and the generic
//     {context|metric, value, timestamp, path}
type Decoder func(body []byte) ([]record.Record, error)

// FieldMap selects record fields from JSON objects. Each field lists dot
// paths tried in order; the first present one wins.
type FieldMap struct {
	// Items is the dot path of the array of rows. Empty means the body is
	// the array, or an object with a "data" or "records" array.
	Items string

	Context   []string
	Value     []string
	Timestamp []string

	// Path is optional.
	Path []string
}

// timeLayouts are tried in order for string timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	time.DateOnly,
}

// FieldDecoder returns a [Decoder] reading rows with the given field paths.
//
// Values may be JSON numbers or numeric strings. Timestamps may be strings
// in RFC 3339 or SQL layouts, or Unix seconds. A row without a context or
// value is an error.
//
// Example:
//
//	// For {"result": {"rows": [{"env": "production", "secs": 41.2, "at": "2024-01-09T10:00:00Z"}]}}
//	decoder := vitalboard.FieldDecoder(vitalboard.FieldMap{
//	    Items:     "result.rows",
//	    Context:   []string{"env"},
//	    Value:     []string{"secs"},
//	    Timestamp: []string{"at"},
//	})
func FieldDecoder(fields FieldMap) Decoder {
	items := splitPath(fields.Items)
	context := splitPaths(fields.Context)
	value := splitPaths(fields.Value)
	timestamp := splitPaths(fields.Timestamp)
	path := splitPaths(fields.Path)

	return func(body []byte) ([]record.Record, error) {
		rows, err := decodeRows(body, items)
		if err != nil {
			return nil, err
		}

		records := make([]record.Record, 0, len(rows))
		for i, row := range rows {
			obj, ok := row.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d: not an object", i)
			}

			var r record.Record
			ctx, ok := firstString(obj, context)
			if !ok || ctx == "" {
				return nil, fmt.Errorf("row %d: missing context", i)
			}
			r.Context = strings.ToLower(ctx)

			raw, ok := first(obj, value)
			if !ok {
				return nil, fmt.Errorf("row %d: missing value", i)
			}
			if r.Value, err = toFloat(raw); err != nil {
				return nil, fmt.Errorf("row %d: value: %w", i, err)
			}

			if raw, ok := first(obj, timestamp); ok {
				if r.Timestamp, err = toTime(raw); err != nil {
					return nil, fmt.Errorf("row %d: timestamp: %w", i, err)
				}
			}
			if p, ok := firstString(obj, path); ok {
				r.Path = p
			}
			records = append(records, r.WithDate())
		}
		return records, nil
	}
}

// BuildDecoder decodes Netlify deploy rows as stored by the deploy
// notification webhook.
var BuildDecoder = FieldDecoder(FieldMap{
	Context:   []string{"context"},
	Value:     []string{"deploy_time"},
	Timestamp: []string{"created_at"},
})

// VitalsDecoder decodes real-user Core Web Vitals rows.
var VitalsDecoder = FieldDecoder(FieldMap{
	Context:   []string{"metric"},
	Value:     []string{"data_float"},
	Timestamp: []string{"time_stamp"},
	Path:      []string{"path"},
})

// DefaultDecoder is used for feeds configured without a decoder. It accepts
// build rows, vitals rows and the generic record shape.
var DefaultDecoder = FieldDecoder(FieldMap{
	Context:   []string{"context", "metric"},
	Value:     []string{"value", "deploy_time", "data_float"},
	Timestamp: []string{"timestamp", "created_at", "time_stamp"},
	Path:      []string{"path"},
})

// FirstDecoder returns a [Decoder] that tries decoders in order and returns
// the first successful result. If all fail, the last error is returned.
func FirstDecoder(decoders ...Decoder) Decoder {
	return func(body []byte) ([]record.Record, error) {
		err := errors.New("no decoders configured")
		for _, d := range decoders {
			var records []record.Record
			if records, err = d(body); err == nil {
				return records, nil
			}
		}
		return nil, err
	}
}

// decodeRows finds the array of rows in body.
func decodeRows(body []byte, items []string) ([]any, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if len(items) > 0 {
		v, ok := walk(data, items)
		if !ok {
			return nil, fmt.Errorf("items path %q not found", strings.Join(items, "."))
		}
		data = v
	} else if obj, ok := data.(map[string]any); ok {
		for _, key := range []string{"data", "records"} {
			if v, ok := obj[key]; ok {
				data = v
				break
			}
		}
	}

	switch rows := data.(type) {
	case []any:
		return rows, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.New("expected a JSON array of rows")
	}
}

// walk follows dot notation parts through nested objects.
func walk(data any, parts []string) (any, bool) {
	current := data
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func first(obj map[string]any, paths [][]string) (any, bool) {
	for _, p := range paths {
		if v, ok := walk(obj, p); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(obj map[string]any, paths [][]string) (string, bool) {
	v, ok := first(obj, paths)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised time %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}

func splitPath(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

func splitPaths(paths []string) [][]string {
	out := make([][]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, splitPath(p))
		}
	}
	return out
}
