package panel

import (
	"maps"
	"reflect"

	"github.com/jpalmerr/vitalboard/internal/store"
	"github.com/jpalmerr/vitalboard/record"
)

// The Apply functions write fetch results into a scope. Like every store
// write they must run on the session goroutine.

// ApplyPeriods stores a periods listing. It reports false, writing nothing,
// when the listing is unchanged so that a periodic refresh does not disturb
// the current selection.
func ApplyPeriods(st *store.Store, scope string, periods []record.YearMonths) bool {
	if prev, ok := store.Lookup[[]record.YearMonths](st, scope, KeyYearsAndMonths); ok && reflect.DeepEqual(prev, periods) {
		return false
	}
	st.Set(scope, KeyYearsAndMonths, periods)
	return true
}

// ApplyRecords stores a fetched month. The records are dated copies; the
// dataVizData map is replaced, never mutated, so views holding the old map
// stay consistent. If period is the selected month it also becomes the
// selected data and the loading state is cleared.
func ApplyRecords(st *store.Store, scope string, period record.Period, records []record.Record) {
	dated := make([]record.Record, len(records))
	for i, r := range records {
		dated[i] = r.WithDate()
	}

	prev, _ := store.Lookup[map[string][]record.Record](st, scope, KeyDataVizData)
	next := make(map[string][]record.Record, len(prev)+1)
	maps.Copy(next, prev)
	next[period.Key()] = dated
	st.Set(scope, KeyDataVizData, next)

	if !selected(st, scope, period) {
		return
	}
	st.Set(scope, KeySelectedData, dated)
	st.Set(scope, KeyFetching, false)
}

// ApplyFetchFailure clears the loading state after a failed fetch of the
// selected month. The previously selected data stays in place.
func ApplyFetchFailure(st *store.Store, scope string, period record.Period) {
	if !selected(st, scope, period) {
		return
	}
	if fetching, _ := store.Lookup[bool](st, scope, KeyFetching); fetching {
		st.Set(scope, KeyFetching, false)
	}
}

func selected(st *store.Store, scope string, period record.Period) bool {
	year, okYear := store.Lookup[int](st, scope, KeyYearSelected)
	month, okMonth := store.Lookup[int](st, scope, KeyMonthSelected)
	return okYear && okMonth && year == period.Year && month == period.Month
}
