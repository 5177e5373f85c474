package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/vitalboard/record"
)

var (
	// ErrUnknownFeed is returned by [Scheduler.Request] for a feed name that
	// was not configured.
	ErrUnknownFeed = errors.New("unknown feed")

	// ErrNotRunning is returned by [Scheduler.Request] before Start or after Stop.
	ErrNotRunning = errors.New("scheduler not running")
)

// FeedInfo contains the configuration needed to fetch a single feed.
//
// This is the poller-internal representation of a feed, decoupled from
// vitalboard.Feed to avoid circular dependencies.
type FeedInfo struct {
	// Name uniquely identifies the feed.
	Name string

	// Scope is the store scope the feed's records are written to.
	Scope string

	// Kind is "builds" or "vitals".
	Kind string

	// Source fetches records and periods.
	Source Source

	// Timeout bounds a single fetch. Zero means no scheduler-imposed limit.
	Timeout time.Duration

	// Interval is how often the periods listing and the watched month are
	// refreshed. If 0, the scheduler's global interval is used.
	Interval time.Duration
}

// FetchResult holds the outcome of one fetch.
//
// Exactly one of Records or Periods is meaningful, selected by IsPeriods.
type FetchResult struct {
	Feed  string
	Scope string
	Kind  string

	// IsPeriods is true for a periods listing fetch.
	IsPeriods bool

	// Period is the month fetched. Zero for periods listings.
	Period record.Period

	Records []record.Record
	Periods []record.YearMonths

	// Cached is true when Records came from the record cache.
	Cached bool

	Latency   time.Duration
	FetchedAt time.Time

	// Err is any error that occurred. On error the data fields are empty.
	Err error
}

// RecordCache stores the records of completed months.
//
// Implementations must be safe for concurrent use.
type RecordCache interface {
	Get(ctx context.Context, feed string, period record.Period) ([]record.Record, bool, error)
	Put(ctx context.Context, feed string, period record.Period, records []record.Record) error
}

// Observer receives fetch instrumentation. outcome is "success", "error"
// or "cached".
type Observer interface {
	FetchCompleted(feed, outcome string, d time.Duration, records int)
}

// SchedulerOption configures a [Scheduler].
type SchedulerOption func(*Scheduler)

// WithCache enables caching of completed months.
func WithCache(cache RecordCache) SchedulerOption {
	return func(s *Scheduler) {
		s.cache = cache
	}
}

// WithObserver sets the fetch instrumentation sink.
func WithObserver(o Observer) SchedulerOption {
	return func(s *Scheduler) {
		s.observer = o
	}
}

type job struct {
	feed    FeedInfo
	period  record.Period
	periods bool
}

func (j job) key() string {
	if j.periods {
		return j.feed.Name + "/periods"
	}
	return j.feed.Name + "/" + j.period.Key()
}

// Scheduler fetches feeds periodically and on demand.
//
// On start every feed's periods listing is fetched. After that the scheduler
// ticks at the GCD of all feed intervals and, for each feed that is due,
// refetches the periods listing and the feed's watched month (the month most
// recently passed to [Scheduler.Request]) unless that month is complete and
// cached.
//
// A fixed pool of workers performs fetches. Results are emitted on
// [Scheduler.Results]. All lifecycle methods are safe for concurrent use.
type Scheduler struct {
	feeds          map[string]FeedInfo
	order          []string
	interval       time.Duration
	maxConcurrency int
	results        chan FetchResult
	logger         *slog.Logger
	cache          RecordCache
	observer       Observer
	now            func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once

	lastPolledAt map[string]time.Time
	watched      map[string]record.Period
	requested    []job
	inflight     map[string]struct{}
	wake         chan struct{}
	baseInterval time.Duration
}

// NewScheduler creates a new [Scheduler].
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop]. Results are available via [Scheduler.Results].
func NewScheduler(feeds []FeedInfo, interval time.Duration, maxConcurrency int, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		feeds:          make(map[string]FeedInfo, len(feeds)),
		order:          make([]string, 0, len(feeds)),
		interval:       interval,
		maxConcurrency: maxConcurrency,
		results:        make(chan FetchResult, 2*len(feeds)+1),
		logger:         logger,
		now:            time.Now,
		watched:        make(map[string]record.Period),
		inflight:       make(map[string]struct{}),
		wake:           make(chan struct{}, 1),
	}
	for _, f := range feeds {
		s.feeds[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Results returns the channel of fetch results. It is closed when the
// scheduler stops.
func (s *Scheduler) Results() <-chan FetchResult {
	return s.results
}

// calculateBaseInterval returns the GCD of all feed intervals, floored at
// one second.
func (s *Scheduler) calculateBaseInterval() time.Duration {
	if len(s.order) == 0 {
		return s.interval
	}

	var result time.Duration
	for _, name := range s.order {
		d := s.feeds[name].Interval
		if d <= 0 {
			d = s.interval
		}
		if result == 0 {
			result = d
			continue
		}
		result = gcdDuration(result, d)
	}

	if result < time.Second {
		result = time.Second
	}
	return result
}

// gcdDuration calculates the greatest common divisor of two durations.
func gcdDuration(a, b time.Duration) time.Duration {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Start begins fetching in the background. Start is non-blocking and
// idempotent; if Stop was called first, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastPolledAt = make(map[string]time.Time, len(s.order))
	s.baseInterval = s.calculateBaseInterval()

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()
}

func (s *Scheduler) run(ctx context.Context) {
	jobs := make(chan job)

	var workers sync.WaitGroup
	for i := 0; i < s.maxConcurrency; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for j := range jobs {
				result := s.fetch(ctx, j)
				s.finish(j)
				select {
				case s.results <- result:
				case <-ctx.Done():
				}
			}
		}()
	}
	defer func() {
		close(jobs)
		workers.Wait()
		s.closeOnce.Do(func() { close(s.results) })
	}()

	dispatch := func(due []job) bool {
		for _, j := range due {
			select {
			case jobs <- j:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	if !dispatch(s.dueJobs(true)) {
		return
	}

	ticker := time.NewTicker(s.baseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !dispatch(s.dueJobs(false)) {
				return
			}
		case <-s.wake:
			if !dispatch(s.takeRequested()) {
				return
			}
		}
	}
}

// Stop halts the scheduler and waits for in-flight fetches to complete.
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// Request asks for feed's records for period and marks period as the feed's
// watched month. Request never blocks; the fetch happens asynchronously and
// its result arrives on [Scheduler.Results]. A request identical to one
// already pending or in flight is coalesced.
func (s *Scheduler) Request(feed string, period record.Period) error {
	if !period.Valid() {
		return fmt.Errorf("invalid period %s", period)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return ErrNotRunning
	}
	f, ok := s.feeds[feed]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeed, feed)
	}

	s.watched[feed] = period
	if !s.enqueueLocked(job{feed: f, period: period}) {
		return nil
	}

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// RequestPeriods asks for feed's periods listing.
func (s *Scheduler) RequestPeriods(feed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.stopped {
		return ErrNotRunning
	}
	f, ok := s.feeds[feed]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeed, feed)
	}
	if s.enqueueLocked(job{feed: f, periods: true}) {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// enqueueLocked adds j to the request queue unless an identical job is
// pending or in flight. Reports whether j was added.
func (s *Scheduler) enqueueLocked(j job) bool {
	if _, busy := s.inflight[j.key()]; busy {
		return false
	}
	s.inflight[j.key()] = struct{}{}
	s.requested = append(s.requested, j)
	return true
}

func (s *Scheduler) takeRequested() []job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.requested
	s.requested = nil
	return out
}

// finish clears j's in-flight marker.
func (s *Scheduler) finish(j job) {
	s.mu.Lock()
	delete(s.inflight, j.key())
	s.mu.Unlock()
}

// dueJobs returns the jobs for feeds whose interval has elapsed. If
// immediate is true every feed is due.
//
// lastPolledAt is updated when a job is dispatched, not when it completes,
// so effective interval = configured interval + fetch duration.
func (s *Scheduler) dueJobs(immediate bool) []job {
	now := s.now()
	current := record.PeriodOf(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	// pending requests ride along with a tick
	due := s.requested
	s.requested = nil

	for _, name := range s.order {
		f := s.feeds[name]
		interval := f.Interval
		if interval == 0 {
			interval = s.interval
		}

		last, polled := s.lastPolledAt[name]
		if !immediate && polled && now.Sub(last) < interval {
			continue
		}
		s.lastPolledAt[name] = now

		candidates := []job{{feed: f, periods: true}}
		if p, ok := s.watched[name]; ok && (s.cache == nil || !completed(p, current)) {
			candidates = append(candidates, job{feed: f, period: p})
		}
		for _, j := range candidates {
			if _, busy := s.inflight[j.key()]; busy {
				continue
			}
			s.inflight[j.key()] = struct{}{}
			due = append(due, j)
		}
	}
	return due
}

// completed reports whether p ends before the current month begins.
func completed(p, current record.Period) bool {
	if p.Year != current.Year {
		return p.Year < current.Year
	}
	return p.Month < current.Month
}

// fetch runs one job with timeout, cache and panic recovery.
func (s *Scheduler) fetch(ctx context.Context, j job) (result FetchResult) {
	result = FetchResult{
		Feed:      j.feed.Name,
		Scope:     j.feed.Scope,
		Kind:      j.feed.Kind,
		IsPeriods: j.periods,
		Period:    j.period,
	}

	if j.feed.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.feed.Timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		result.Latency = time.Since(start)
		result.FetchedAt = time.Now()
		s.observe(result)
	}()

	if j.periods {
		result.Periods, result.Err = safeFetch(s.logger, j.feed.Name, func() ([]record.YearMonths, error) {
			return j.feed.Source.Periods(ctx)
		})
		if result.Err != nil {
			result.Periods = nil
		}
		return result
	}

	cacheable := s.cache != nil && completed(j.period, record.PeriodOf(s.now()))
	if cacheable {
		records, hit, err := s.cache.Get(ctx, j.feed.Name, j.period)
		if err != nil {
			s.logger.Warn("record cache read failed", "feed", j.feed.Name, "period", j.period.String(), "error", err)
		} else if hit {
			result.Records = records
			result.Cached = true
			return result
		}
	}

	result.Records, result.Err = safeFetch(s.logger, j.feed.Name, func() ([]record.Record, error) {
		return j.feed.Source.Records(ctx, j.period)
	})
	if result.Err != nil {
		result.Records = nil
		return result
	}

	if cacheable {
		if err := s.cache.Put(ctx, j.feed.Name, j.period, result.Records); err != nil {
			s.logger.Warn("record cache write failed", "feed", j.feed.Name, "period", j.period.String(), "error", err)
		}
	}
	return result
}

// safeFetch calls fn with panic recovery. A panic is logged with a
// correlation id and returned as an error containing that id.
func safeFetch[T any](logger *slog.Logger, feed string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("source panic",
				"correlation_id", correlationID,
				"feed", feed,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			var zero T
			out = zero
			err = fmt.Errorf("source panic (correlation_id: %s)", correlationID)
		}
	}()
	return fn()
}

func (s *Scheduler) observe(r FetchResult) {
	if s.observer == nil {
		return
	}
	outcome := "success"
	switch {
	case r.Err != nil:
		outcome = "error"
	case r.Cached:
		outcome = "cached"
	}
	s.observer.FetchCompleted(r.Feed, outcome, r.Latency, len(r.Records))
}
