// Package postgres reads build and vitals records straight from the Postgres
// tables the dashboard's collectors write to.
//
// Builds come from netlify_deploy_data(context, deploy_time, created_at) and
// vitals from real_user_metrics(path, time_stamp, metric, data_float). A
// [Source] satisfies the poller's Source interface, so a feed can be backed
// by the database instead of an HTTP API.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/jpalmerr/vitalboard/record"
)

const (
	defaultDriver    = "pgx"
	defaultBatchSize = 1000
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Option configures a [Source].
type Option func(*Source)

// WithBatchSize sets how many vitals rows are read per query. Vitals months
// are large, so they are paged.
func WithBatchSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithMetrics restricts vitals queries to the given metric names.
func WithMetrics(metrics ...string) Option {
	return func(s *Source) {
		if len(metrics) > 0 {
			s.metrics = metrics
		}
	}
}

// Source queries one kind of record from Postgres.
type Source struct {
	db        *sql.DB
	kind      string
	batchSize int
	metrics   []string
}

// Open connects to dsn with the pgx driver and verifies the connection.
func Open(ctx context.Context, dsn, kind string, opts ...Option) (*Source, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db, kind, opts...)
}

// New wraps an open database handle.
func New(db *sql.DB, kind string, opts ...Option) (*Source, error) {
	if kind != record.KindBuilds && kind != record.KindVitals {
		return nil, fmt.Errorf("unknown record kind %q (expected %q or %q)", kind, record.KindBuilds, record.KindVitals)
	}
	s := &Source{
		db:        db,
		kind:      kind,
		batchSize: defaultBatchSize,
		metrics:   record.VitalsMetrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database handle.
func (s *Source) Close() error {
	return s.db.Close()
}

// Records returns the records timestamped within period.
func (s *Source) Records(ctx context.Context, period record.Period) ([]record.Record, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("invalid period %s", period)
	}
	start, end := period.Range()
	if s.kind == record.KindBuilds {
		return s.builds(ctx, start, end)
	}
	return s.vitals(ctx, start, end)
}

func (s *Source) builds(ctx context.Context, start, end time.Time) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT context, deploy_time, created_at
		FROM netlify_deploy_data
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at`, start, end)
	if err != nil {
		return nil, fmt.Errorf("select builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []record.Record
	for rows.Next() {
		var r record.Record
		if err := rows.Scan(&r.Context, &r.Value, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		out = append(out, r.WithDate())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return out, nil
}

// vitals pages through the month in batchSize chunks ordered by timestamp.
func (s *Source) vitals(ctx context.Context, start, end time.Time) ([]record.Record, error) {
	query, args := vitalsQuery(s.metrics, start, end)
	limitPos := len(args) + 1

	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", limitPos, limitPos+1)

	var out []record.Record
	for offset := 0; ; offset += s.batchSize {
		batch, err := s.vitalsBatch(ctx, query, append(args, s.batchSize, offset))
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < s.batchSize {
			return out, nil
		}
	}
}

func (s *Source) vitalsBatch(ctx context.Context, query string, args []any) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select vitals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []record.Record
	for rows.Next() {
		var (
			r    record.Record
			path sql.NullString
		)
		if err := rows.Scan(&path, &r.Timestamp, &r.Context, &r.Value); err != nil {
			return nil, fmt.Errorf("scan vitals: %w", err)
		}
		r.Path = path.String
		out = append(out, r.WithDate())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vitals: %w", err)
	}
	return out, nil
}

// vitalsQuery builds the unpaged vitals query and its positional arguments.
func vitalsQuery(metrics []string, start, end time.Time) (string, []any) {
	placeholders := make([]string, len(metrics))
	args := make([]any, 0, len(metrics)+2)
	for i, m := range metrics {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, m)
	}
	n := len(metrics)
	args = append(args, start, end)

	query := fmt.Sprintf(`SELECT path, time_stamp, metric, data_float
		FROM real_user_metrics
		WHERE metric IN (%s) AND time_stamp >= $%d AND time_stamp < $%d
		ORDER BY time_stamp`, strings.Join(placeholders, ", "), n+1, n+2)
	return query, args
}

// Periods lists the months that have at least one record, grouped by year
// in ascending order.
func (s *Source) Periods(ctx context.Context) ([]record.YearMonths, error) {
	table, column := "netlify_deploy_data", "created_at"
	if s.kind == record.KindVitals {
		table, column = "real_user_metrics", "time_stamp"
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT
		CAST(EXTRACT(YEAR FROM %[1]s) AS INTEGER) AS year,
		CAST(EXTRACT(MONTH FROM %[1]s) AS INTEGER) AS month
		FROM %[2]s
		GROUP BY 1, 2
		ORDER BY 1, 2`, column, table))
	if err != nil {
		return nil, fmt.Errorf("select periods: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []record.YearMonths
	for rows.Next() {
		var year, month int
		if err := rows.Scan(&year, &month); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		if n := len(out); n > 0 && out[n-1].Year == year {
			out[n-1].MonthNumbers = append(out[n-1].MonthNumbers, month)
			continue
		}
		out = append(out, record.YearMonths{Year: year, MonthNumbers: []int{month}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return out, nil
}
