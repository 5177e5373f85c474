package vitalboard

import (
	"time"

	"github.com/jpalmerr/vitalboard/record"
)

// FetchEvent describes one completed fetch, passed to callbacks registered
// with [WithFetchCallback].
type FetchEvent struct {
	// Feed is the feed's name.
	Feed string

	// Scope is the store scope the result was applied to.
	Scope string

	// Kind is [KindBuilds] or [KindVitals].
	Kind string

	// IsPeriods is true for a periods listing fetch.
	IsPeriods bool

	// Period is the month fetched. Zero for periods listings.
	Period record.Period

	// Records is the number of records fetched.
	Records int

	// Months is the number of months listed by a periods fetch.
	Months int

	// Cached is true when the records came from the on-disk cache.
	Cached bool

	// Latency is how long the fetch took.
	Latency time.Duration

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time

	// Err is any error that occurred. The store keeps its previous data for
	// the feed when a fetch fails.
	Err error
}
