package panel

import (
	"slices"

	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/record"
)

// Periods drives month selection for one feed.
//
// When the periods listing arrives it fills years and months and selects
// the latest month, keeping an existing selection that is still listed.
// Selecting a year lists its months and selects the latest of them.
// When a month is selected it serves the month from the dataVizData cache
// or asks the Fetcher for it.
type Periods struct {
	base
	feed    string
	fetcher Fetcher
}

// PeriodsView is the published state of a [Periods] panel.
type PeriodsView struct {
	Years         []int  `json:"years"`
	YearSelected  int    `json:"year_selected"`
	Months        []int  `json:"months"`
	MonthSelected int    `json:"month_selected"`
	Status        string `json:"status"`
}

// NewPeriods creates a [Periods] panel for feed writing to scope.
func NewPeriods(feed, scope string, fetcher Fetcher, cfg Config) *Periods {
	return &Periods{base: newBase("periods", scope, cfg), feed: feed, fetcher: fetcher}
}

// Mount implements [Panel].
func (p *Periods) Mount(st *store.Store) error {
	if err := p.mount(st, p); err != nil {
		return err
	}
	if _, ok := st.Get(p.scope, KeyYearsAndMonths); ok {
		p.Notify(KeyYearsAndMonths, p.scope)
	}
	return nil
}

// Unmount implements [Panel].
func (p *Periods) Unmount() { p.unmount(p) }

// Notify implements [store.Notifier].
func (p *Periods) Notify(key, scope string) {
	if scope != p.scope {
		return
	}
	switch key {
	case KeyYearsAndMonths:
		p.listed()
		p.publishState()
	case KeyMonthSelected:
		p.fetchSelected()
		p.publishState()
	case KeyYearSelected:
		p.yearChosen()
		p.publishState()
	case KeyFetching:
		p.publishState()
	}
}

func (p *Periods) listed() {
	listing, _ := store.Lookup[[]record.YearMonths](p.st, p.scope, KeyYearsAndMonths)
	if len(listing) == 0 {
		return
	}

	years := make([]int, len(listing))
	for i, ym := range listing {
		years[i] = ym.Year
	}
	if prev, _ := store.Lookup[[]int](p.st, p.scope, KeyYears); !slices.Equal(prev, years) {
		p.st.Set(p.scope, KeyYears, years)
	}

	current, hasYear := store.Lookup[int](p.st, p.scope, KeyYearSelected)
	if !hasYear || !slices.Contains(years, current) {
		// the yearSelected handler fills months and picks the month
		p.st.Set(p.scope, KeyYearSelected, years[len(years)-1])
		return
	}
	p.selectMonth(current, true)
}

// yearChosen lists the selected year's months and selects its latest.
func (p *Periods) yearChosen() {
	year, ok := store.Lookup[int](p.st, p.scope, KeyYearSelected)
	if !ok {
		return
	}
	p.selectMonth(year, false)
}

// selectMonth refreshes the months of year and selects the latest one. With
// keep set, a selected month that is still listed stays selected.
func (p *Periods) selectMonth(year int, keep bool) {
	listing, _ := store.Lookup[[]record.YearMonths](p.st, p.scope, KeyYearsAndMonths)
	months := monthsFor(listing, year)
	if prev, ok := store.Lookup[[]int](p.st, p.scope, KeyMonths); !ok || !slices.Equal(prev, months) {
		p.st.Set(p.scope, KeyMonths, months)
	}
	if len(months) == 0 {
		return
	}

	current, ok := store.Lookup[int](p.st, p.scope, KeyMonthSelected)
	if ok && keep && slices.Contains(months, current) {
		return
	}
	latest := months[len(months)-1]
	if ok && !keep && current == latest {
		// same month number, different year: still needs loading
		p.fetchSelected()
		return
	}
	p.st.Set(p.scope, KeyMonthSelected, latest)
}

// fetchSelected serves the selected month from the cache or requests it.
func (p *Periods) fetchSelected() {
	year, okYear := store.Lookup[int](p.st, p.scope, KeyYearSelected)
	month, okMonth := store.Lookup[int](p.st, p.scope, KeyMonthSelected)
	if !okYear || !okMonth {
		return
	}
	period := record.Period{Year: year, Month: month}

	cache, _ := store.Lookup[map[string][]record.Record](p.st, p.scope, KeyDataVizData)
	if data, ok := cache[period.Key()]; ok {
		p.st.Set(p.scope, KeySelectedData, data)
		if p.fetching() {
			p.st.Set(p.scope, KeyFetching, false)
		}
		return
	}

	if p.fetcher == nil {
		return
	}
	p.st.Set(p.scope, KeyFetching, true)
	if err := p.fetcher.Request(p.feed, period); err != nil {
		p.cfg.Logger.Warn("month request failed",
			"feed", p.feed,
			"scope", p.scope,
			"period", period.String(),
			"error", err,
		)
		p.st.Set(p.scope, KeyFetching, false)
	}
}

func (p *Periods) publishState() {
	view := PeriodsView{Status: "loaded"}
	view.Years, _ = store.Lookup[[]int](p.st, p.scope, KeyYears)
	view.YearSelected, _ = store.Lookup[int](p.st, p.scope, KeyYearSelected)
	view.Months, _ = store.Lookup[[]int](p.st, p.scope, KeyMonths)
	view.MonthSelected, _ = store.Lookup[int](p.st, p.scope, KeyMonthSelected)
	if view.Years == nil {
		view.Status = "loading"
	}
	p.publish(p.fetching(), view)
}

// monthsFor returns the listed months of year.
func monthsFor(listing []record.YearMonths, year int) []int {
	for _, ym := range listing {
		if ym.Year == year {
			return slices.Clone(ym.MonthNumbers)
		}
	}
	return nil
}
