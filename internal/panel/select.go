package panel

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/jpalmerr/vitalboard/internal/store"
)

var (
	// ErrNotSelectable is returned by [Choose] for keys users may not write.
	ErrNotSelectable = errors.New("key is not selectable")

	// ErrInvalidSelection is returned when a chosen value is malformed or
	// not on offer.
	ErrInvalidSelection = errors.New("invalid selection")
)

// Selectable lists the keys [Choose] accepts.
var Selectable = []string{KeyYearSelected, KeyMonthSelected, KeyContextSelected, KeyFrameSelected}

// Choose applies a user selection. value may come straight from decoded
// JSON, so numbers are accepted as float64 or json.Number.
func Choose(st *store.Store, scope, key string, value any) error {
	switch key {
	case KeyYearSelected:
		year, err := toInt(value)
		if err != nil {
			return err
		}
		return ChooseYear(st, scope, year)
	case KeyMonthSelected:
		month, err := toInt(value)
		if err != nil {
			return err
		}
		return ChooseMonth(st, scope, month)
	case KeyContextSelected:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidSelection, key)
		}
		return ChooseContext(st, scope, s)
	case KeyFrameSelected:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidSelection, key)
		}
		return ChooseFrame(st, scope, s)
	default:
		return fmt.Errorf("%w: %q", ErrNotSelectable, key)
	}
}

// ChooseYear selects a listed year. The Periods panel then selects the
// year's latest month.
func ChooseYear(st *store.Store, scope string, year int) error {
	years, _ := store.Lookup[[]int](st, scope, KeyYears)
	if !slices.Contains(years, year) {
		return fmt.Errorf("%w: year %d is not listed", ErrInvalidSelection, year)
	}
	st.Set(scope, KeyYearSelected, year)
	return nil
}

// ChooseMonth selects a month of the selected year. Choosing the current
// month is a no-op.
func ChooseMonth(st *store.Store, scope string, month int) error {
	months, _ := store.Lookup[[]int](st, scope, KeyMonths)
	if !slices.Contains(months, month) {
		return fmt.Errorf("%w: month %d is not listed", ErrInvalidSelection, month)
	}
	if current, ok := store.Lookup[int](st, scope, KeyMonthSelected); ok && current == month {
		return nil
	}
	st.Set(scope, KeyMonthSelected, month)
	return nil
}

// ChooseContext selects a build context or vitals metric.
func ChooseContext(st *store.Store, scope, context string) error {
	if context == "" {
		return fmt.Errorf("%w: empty context", ErrInvalidSelection)
	}
	st.Set(scope, KeyContextSelected, context)
	return nil
}

// ChooseFrame selects a vitals frame.
func ChooseFrame(st *store.Store, scope, frame string) error {
	if !slices.Contains(Frames, frame) {
		return fmt.Errorf("%w: unknown frame %q", ErrInvalidSelection, frame)
	}
	st.Set(scope, KeyFrameSelected, frame)
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("%w: %v is not a whole number", ErrInvalidSelection, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidSelection, v)
	}
}
