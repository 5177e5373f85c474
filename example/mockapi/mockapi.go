// Package mockapi serves generated build and vitals records for the demo.
//
// Routes, per site:
//
//	GET /{site}/builds?year=2024&month=1   deploy rows
//	GET /{site}/builds/months              periods listing
//	GET /{site}/vitals?year=2024&month=1   real-user metric rows
//	GET /{site}/vitals/months              periods listing
//
// Records are generated from a seed derived from site, kind and month, so
// the same month always returns the same rows. The current month grows as
// the day advances.
package mockapi

import (
	"encoding/json"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jpalmerr/vitalboard/pipeline"
)

// Months is how many months, ending with the current one, have data.
const Months = 4

var (
	buildContexts = []string{"production", "deploy-preview", "cms"}

	// typical deploy time in seconds per context
	buildBase = map[string]float64{"production": 38, "deploy-preview": 44, "cms": 33}

	vitalsBase = map[string]float64{"lcp": 2200, "fid": 90, "cls": 0.08}
	vitalsDev  = map[string]float64{"lcp": 900, "fid": 60, "cls": 0.07}

	pages = []string{"/", "/pricing", "/blog", "/docs", "/signup"}
)

// BuildRow is one generated deploy.
type BuildRow struct {
	Context    string  `json:"context"`
	DeployTime float64 `json:"deploy_time"`
	CreatedAt  string  `json:"created_at"`
}

// VitalsRow is one generated real-user sample.
type VitalsRow struct {
	Metric    string  `json:"metric"`
	DataFloat float64 `json:"data_float"`
	TimeStamp string  `json:"time_stamp"`
	Path      string  `json:"path"`
}

// YearMonths is one entry of a periods listing.
type YearMonths struct {
	Year         int   `json:"year"`
	MonthNumbers []int `json:"month_numbers"`
}

// API generates records relative to a clock.
type API struct {
	now    func() time.Time
	logger *slog.Logger
}

// New creates an API. A nil now uses time.Now.
func New(now func() time.Time, logger *slog.Logger) *API {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{now: now, logger: logger}
}

// Handler returns the API's routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/{site}/builds", a.handleBuilds)
	r.Get("/{site}/builds/months", a.handleMonths)
	r.Get("/{site}/vitals", a.handleVitals)
	r.Get("/{site}/vitals/months", a.handleMonths)
	return r
}

// Periods lists the last [Months] months, grouped by year, oldest first.
func (a *API) Periods() []YearMonths {
	now := a.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(Months - 1), 0)

	var out []YearMonths
	for i := 0; i < Months; i++ {
		m := first.AddDate(0, i, 0)
		if len(out) == 0 || out[len(out)-1].Year != m.Year() {
			out = append(out, YearMonths{Year: m.Year()})
		}
		last := &out[len(out)-1]
		last.MonthNumbers = append(last.MonthNumbers, int(m.Month()))
	}
	return out
}

// Builds generates the deploys of one month for site.
func (a *API) Builds(site string, year, month int) []BuildRow {
	rng := rand.New(rand.NewSource(seed(site, "builds", year, month)))
	days := a.days(year, month)

	var rows []BuildRow
	for day := 1; day <= days; day++ {
		for n := rng.Intn(4); n > 0; n-- {
			ctx := buildContexts[rng.Intn(len(buildContexts))]
			secs := buildBase[ctx] + rng.NormFloat64()*7
			if secs < 5 {
				secs = 5
			}
			rows = append(rows, BuildRow{
				Context:    ctx,
				DeployTime: pipeline.Round(secs, 1),
				CreatedAt:  timestamp(year, month, day, rng).Format(time.RFC3339),
			})
		}
	}
	return rows
}

// Vitals generates the real-user samples of one month for site.
func (a *API) Vitals(site string, year, month int) []VitalsRow {
	rng := rand.New(rand.NewSource(seed(site, "vitals", year, month)))
	days := a.days(year, month)

	var rows []VitalsRow
	for day := 1; day <= days; day++ {
		for n := 5 + rng.Intn(10); n > 0; n-- {
			path := pages[rng.Intn(len(pages))]
			for _, metric := range []string{"lcp", "fid", "cls"} {
				v := vitalsBase[metric] + rng.NormFloat64()*vitalsDev[metric]
				if v < 0 {
					v = -v
				}
				rows = append(rows, VitalsRow{
					Metric:    metric,
					DataFloat: pipeline.Round(v, 4),
					TimeStamp: timestamp(year, month, day, rng).Format(time.RFC3339),
					Path:      path,
				})
			}
		}
	}
	return rows
}

// days returns how many days of the month have data: all of them for past
// months, up to today for the current one, none for the future.
func (a *API) days(year, month int) int {
	now := a.now().UTC()
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	switch {
	case !now.After(start):
		return 0
	case now.Before(end):
		return now.Day()
	default:
		return end.AddDate(0, 0, -1).Day()
	}
}

func (a *API) handleMonths(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.Periods())
}

func (a *API) handleBuilds(w http.ResponseWriter, r *http.Request) {
	year, month, ok := period(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, a.Builds(chi.URLParam(r, "site"), year, month))
}

func (a *API) handleVitals(w http.ResponseWriter, r *http.Request) {
	year, month, ok := period(w, r)
	if !ok {
		return
	}
	a.writeJSON(w, a.Vitals(chi.URLParam(r, "site"), year, month))
}

func period(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "year is required", http.StatusBadRequest)
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		http.Error(w, "month must be 1-12", http.StatusBadRequest)
		return 0, 0, false
	}
	return year, month, true
}

func (a *API) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to write response", "error", err)
	}
}

func seed(site, kind string, year, month int) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(site + "/" + kind + "/" + strconv.Itoa(year) + "/" + strconv.Itoa(month)))
	return int64(h.Sum64())
}

func timestamp(year, month, day int, rng *rand.Rand) time.Time {
	return time.Date(year, time.Month(month), day, rng.Intn(24), rng.Intn(60), 0, 0, time.UTC)
}
