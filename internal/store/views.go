package store

import (
	"sort"
	"sync"
	"time"
)

// View is the published output of one dashboard panel.
//
// View is the wire representation sent over the REST API, SSE and WebSocket.
// Data must be JSON-encodable; panels replace NaN with nil before publishing.
type View struct {
	// ID identifies the panel, e.g. "builds_mean-build-times".
	ID string `json:"id"`

	// Scope is the store scope the panel is bound to.
	Scope string `json:"scope"`

	// Kind is the panel type, e.g. "histogram".
	Kind string `json:"kind"`

	// Loading is true while the panel's data is being fetched.
	Loading bool `json:"loading"`

	// Data is the panel-specific payload. nil until the first computation.
	Data any `json:"data"`

	// UpdatedAt is when the view was last published.
	UpdatedAt time.Time `json:"updated_at"`
}

// Views stores the latest view per panel and fans updates out to subscribers.
//
// Implementations must be safe for concurrent access.
type Views interface {
	// Update stores a view, replacing any previous view with the same ID,
	// and notifies all subscribers.
	Update(view View)

	// Remove deletes a view. Unknown IDs are ignored.
	Remove(id string)

	// Get returns the view with the given ID.
	Get(id string) (View, bool)

	// GetAll returns a snapshot of all views sorted by ID.
	GetAll() []View

	// Subscribe returns a buffered channel of view updates. Slow consumers
	// may miss updates. Callers must Unsubscribe when done.
	Subscribe() <-chan View

	// Unsubscribe removes a subscription and closes its channel. Safe to
	// call more than once.
	Unsubscribe(ch <-chan View)
}

const subscriberBuffer = 100

// MemoryViews is an in-memory implementation of [Views].
//
// Updates are sent non-blocking; if a subscriber's buffer is full the update
// is dropped for that subscriber.
type MemoryViews struct {
	mu          sync.RWMutex
	views       map[string]View
	subscribers map[chan View]struct{}
	subMu       sync.RWMutex
}

// NewMemoryViews creates an empty [MemoryViews].
func NewMemoryViews() *MemoryViews {
	return &MemoryViews{
		views:       make(map[string]View),
		subscribers: make(map[chan View]struct{}),
	}
}

// Update stores view under its ID and notifies subscribers. A zero UpdatedAt
// is stamped with the current time.
func (m *MemoryViews) Update(view View) {
	if view.UpdatedAt.IsZero() {
		view.UpdatedAt = time.Now()
	}

	m.mu.Lock()
	m.views[view.ID] = view
	m.mu.Unlock()

	m.notifySubscribers(view)
}

// Remove deletes the view with the given ID.
func (m *MemoryViews) Remove(id string) {
	m.mu.Lock()
	delete(m.views, id)
	m.mu.Unlock()
}

// Get returns the view with the given ID.
func (m *MemoryViews) Get(id string) (View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.views[id]
	return v, ok
}

// GetAll returns a copy of all views, sorted by ID.
func (m *MemoryViews) GetAll() []View {
	m.mu.RLock()
	views := make([]View, 0, len(m.views))
	for _, v := range m.views {
		views = append(views, v)
	}
	m.mu.RUnlock()

	sort.Slice(views, func(i, j int) bool {
		return views[i].ID < views[j].ID
	})
	return views
}

// Subscribe registers a new subscriber.
func (m *MemoryViews) Subscribe() <-chan View {
	ch := make(chan View, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *MemoryViews) Unsubscribe(ch <-chan View) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			return
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *MemoryViews) SubscriberCount() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return len(m.subscribers)
}

func (m *MemoryViews) notifySubscribers(view View) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- view:
		default:
			// slow consumer, drop
		}
	}
}
