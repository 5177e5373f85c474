package store

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNilComponent is returned when subscribing a nil component.
	ErrNilComponent = errors.New("component cannot be nil")

	// ErrUncomparable is returned when subscribing a component whose type
	// cannot be compared with ==. Subscribe pointers.
	ErrUncomparable = errors.New("component type is not comparable")
)

// Component is anything that can be attached to a [Store]. Identity is
// ==, so components are normally pointers.
type Component any

// Notifier is implemented by components that want change notifications.
// Registered components that do not implement it are skipped.
type Notifier interface {
	Notify(key, scope string)
}

// Listener adapts a function to a [Notifier]. Each Listener is a distinct
// component.
type Listener struct {
	fn func(key, scope string)
}

// NewListener returns a Listener calling fn on every notification.
func NewListener(fn func(key, scope string)) *Listener {
	return &Listener{fn: fn}
}

// Notify implements [Notifier].
func (l *Listener) Notify(key, scope string) {
	l.fn(key, scope)
}

// Registry is the ordered set of components subscribed to a [Store].
type Registry struct {
	mu       sync.RWMutex
	members  []Component
	logger   *slog.Logger
	recorder Recorder
}

// NewRegistry creates an empty [Registry].
func NewRegistry(logger *slog.Logger, recorder Recorder) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Registry{logger: logger, recorder: recorder}
}

// Subscribe appends c if it is not already a member.
func (r *Registry) Subscribe(c Component) error {
	if c == nil {
		return ErrNilComponent
	}
	if !reflect.TypeOf(c).Comparable() {
		return fmt.Errorf("%w: %T", ErrUncomparable, c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(c) >= 0 {
		return nil
	}
	r.members = append(r.members, c)
	r.recorder.Subscribers(len(r.members))
	return nil
}

// Unsubscribe removes c if present.
func (r *Registry) Unsubscribe(c Component) {
	if c == nil || !reflect.TypeOf(c).Comparable() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(c)
	if i < 0 {
		return
	}
	// copy into a new slice so in-flight Emit snapshots are unaffected
	members := make([]Component, 0, len(r.members)-1)
	members = append(members, r.members[:i]...)
	members = append(members, r.members[i+1:]...)
	r.members = members
	r.recorder.Subscribers(len(r.members))
}

// Contains reports whether c is a member.
func (r *Registry) Contains(c Component) bool {
	if c == nil || !reflect.TypeOf(c).Comparable() {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexLocked(c) >= 0
}

// Len returns the number of members.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *Registry) indexLocked(c Component) int {
	for i, m := range r.members {
		if m == c {
			return i
		}
	}
	return -1
}

// Emit calls Notify(key, scope) on every member implementing [Notifier], in
// registration order, and returns how many were notified.
//
// Members are those registered when the pass starts. A member unsubscribed
// during the pass is not notified afterwards. A panicking member is logged
// with a correlation id and the pass continues.
func (r *Registry) Emit(key, scope string) int {
	r.mu.RLock()
	members := r.members
	r.mu.RUnlock()

	notified := 0
	for _, m := range members {
		n, ok := m.(Notifier)
		if !ok {
			continue
		}
		if !r.Contains(m) {
			continue
		}
		r.notifySafe(n, key, scope)
		notified++
	}
	return notified
}

// notifySafe calls Notify with panic recovery.
func (r *Registry) notifySafe(n Notifier, key, scope string) {
	defer func() {
		if rec := recover(); rec != nil {
			correlationID := uuid.NewString()
			r.logger.Error("subscriber panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", rec),
				"subscriber", fmt.Sprintf("%T", n),
				"key", key,
				"scope", scope,
				"stack", string(debug.Stack()),
			)
			r.recorder.SubscriberPanic()
		}
	}()
	n.Notify(key, scope)
}
