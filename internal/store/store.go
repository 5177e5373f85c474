package store

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// DispatchMode controls how a write issued from inside a subscriber's
// notify handler is delivered.
type DispatchMode int

const (
	// BreadthFirst queues nested notifications until the current emit pass
	// completes. Every subscriber observes a change before any change made
	// in reaction to it.
	BreadthFirst DispatchMode = iota

	// DepthFirst delivers a nested write immediately with a full recursive
	// emit pass, then resumes the outer pass.
	DepthFirst
)

// String returns "breadth-first" or "depth-first".
func (m DispatchMode) String() string {
	if m == DepthFirst {
		return "depth-first"
	}
	return "breadth-first"
}

// ParseDispatchMode parses "breadth-first" or "depth-first". An empty string
// selects [BreadthFirst].
func ParseDispatchMode(s string) (DispatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "breadth-first":
		return BreadthFirst, nil
	case "depth-first":
		return DepthFirst, nil
	default:
		return BreadthFirst, fmt.Errorf("unknown dispatch mode %q (expected 'breadth-first' or 'depth-first')", s)
	}
}

// Recorder receives instrumentation events from a [Store] and its [Registry].
// Implementations must be safe for concurrent use.
type Recorder interface {
	StoreWrite(scope string)
	StoreNotify(scope string, notified int)
	SubscriberPanic()
	Subscribers(n int)
}

type nopRecorder struct{}

func (nopRecorder) StoreWrite(string)       {}
func (nopRecorder) StoreNotify(string, int) {}
func (nopRecorder) SubscriberPanic()        {}
func (nopRecorder) Subscribers(int)         {}

// Option configures a [Store].
type Option func(*Store)

// WithDispatch sets how nested writes are delivered. Defaults to [BreadthFirst].
func WithDispatch(mode DispatchMode) Option {
	return func(s *Store) {
		s.mode = mode
	}
}

// WithLogger sets the logger used for recovered subscriber panics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the instrumentation sink.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Key returns the scoped key under which (scope, key) is stored.
func Key(scope, key string) string {
	return scope + key
}

type entry struct {
	scope string
	key   string
	value any
}

type change struct {
	key   string
	scope string
}

// Store is a keyed state container namespaced by scope id.
//
// Each scoped key holds only its most recently written value. Every [Store.Set]
// notifies all subscribed components, in registration order, with the key and
// scope that changed.
//
// Reads are safe from any goroutine. Notifications are never delivered
// concurrently: in [BreadthFirst] mode the goroutine that starts an emit pass
// also drains writes posted by other goroutines meanwhile. [DepthFirst] mode
// recurses on the writing goroutine and therefore expects a single writer;
// use a [Session] to funnel writes.
type Store struct {
	mu     sync.RWMutex
	values map[string]entry

	registry *Registry
	mode     DispatchMode
	logger   *slog.Logger
	recorder Recorder

	dispatchMu sync.Mutex
	pending    []change
	draining   bool
}

// New creates an empty [Store].
func New(opts ...Option) *Store {
	s := &Store{
		values:   make(map[string]entry),
		mode:     BreadthFirst,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = NewRegistry(s.logger, s.recorder)
	return s
}

// Mode returns the store's dispatch mode.
func (s *Store) Mode() DispatchMode {
	return s.mode
}

// Get returns the value stored under (scope, key). The boolean is false if
// the key has never been set; callers treat that as "not yet loaded".
func (s *Store) Get(scope, key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.values[Key(scope, key)]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Lookup returns the value under (scope, key) as a T. The boolean is false
// if the key is unset or holds a value of another type.
func Lookup[T any](s *Store, scope, key string) (T, bool) {
	var zero T
	v, ok := s.Get(scope, key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set writes value under (scope, key) and notifies every subscriber with
// (key, scope).
//
// Set returns once the change, and every change written in reaction to it,
// has been delivered. The exception is a BreadthFirst Set made while another
// goroutine is already emitting: it is queued for that goroutine and Set
// returns immediately.
func (s *Store) Set(scope, key string, value any) {
	s.mu.Lock()
	s.values[Key(scope, key)] = entry{scope: scope, key: key, value: value}
	s.mu.Unlock()

	s.recorder.StoreWrite(scope)

	c := change{key: key, scope: scope}
	if s.mode == DepthFirst {
		s.emit(c)
		return
	}

	s.dispatchMu.Lock()
	s.pending = append(s.pending, c)
	if s.draining {
		s.dispatchMu.Unlock()
		return
	}
	s.draining = true
	s.dispatchMu.Unlock()

	s.drain()
}

// drain delivers queued changes in FIFO order until the queue is empty.
func (s *Store) drain() {
	for {
		s.dispatchMu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.dispatchMu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.dispatchMu.Unlock()

		s.emit(next)
	}
}

func (s *Store) emit(c change) {
	notified := s.registry.Emit(c.key, c.scope)
	s.recorder.StoreNotify(c.scope, notified)
}

// Subscribe registers c for change notifications. Subscribing an already
// registered component is a no-op.
func (s *Store) Subscribe(c Component) error {
	return s.registry.Subscribe(c)
}

// Unsubscribe removes c. Unsubscribing a non-member is a no-op.
func (s *Store) Unsubscribe(c Component) {
	s.registry.Unsubscribe(c)
}

// Subscribed reports whether c is currently registered.
func (s *Store) Subscribed(c Component) bool {
	return s.registry.Contains(c)
}

// Subscribers returns the number of registered components.
func (s *Store) Subscribers() int {
	return s.registry.Len()
}

// Snapshot returns a copy of every key written in scope, without the scope
// prefix. Values are not deep-copied.
func (s *Store) Snapshot(scope string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any)
	for _, e := range s.values {
		if e.scope == scope {
			out[e.key] = e.value
		}
	}
	return out
}

// Scopes returns the distinct scope ids that have been written, sorted.
func (s *Store) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range s.values {
		seen[e.scope] = struct{}{}
	}
	scopes := make([]string, 0, len(seen))
	for scope := range seen {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}
