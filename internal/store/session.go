package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionClosed is returned when posting to a session whose loop has exited.
var ErrSessionClosed = errors.New("session closed")

// Op is an operation applied to a [Store] on the session goroutine.
type Op func(st *Store)

const sessionQueue = 64

// Session is the exclusive owner of a [Store] for one dashboard.
//
// All writes go through the session so they are applied one at a time on the
// goroutine running [Session.Run], in the order they were posted. Fetch
// completion handlers and HTTP handlers call [Session.Post] or [Session.Do]
// instead of writing the store directly.
type Session struct {
	store  *Store
	ops    chan Op
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

// NewSession wraps st. Call [Session.Run] to start applying operations.
func NewSession(st *Store, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		store:  st,
		ops:    make(chan Op, sessionQueue),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Store returns the owned store. Reads are safe from any goroutine.
func (s *Session) Store() *Store {
	return s.store
}

// Run applies posted operations until ctx is cancelled. Run must be called
// at most once. Operations still queued at cancellation are discarded.
func (s *Session) Run(ctx context.Context) {
	defer s.close()

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-s.ops:
			s.apply(op)
		}
	}
}

// Done returns a channel closed when the loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Post queues op without waiting for it to run. Post blocks while the queue
// is full.
func (s *Session) Post(op Op) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.ops <- op:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Do queues op and waits until it has run, ctx is cancelled, or the session
// closes.
func (s *Session) Do(ctx context.Context, op Op) error {
	applied := make(chan struct{})
	err := s.Post(func(st *Store) {
		defer close(applied)
		op(st)
	})
	if err != nil {
		return err
	}

	select {
	case <-applied:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		select {
		case <-applied:
			return nil
		default:
			return ErrSessionClosed
		}
	}
}

// apply runs op, recovering panics so one bad operation does not end the loop.
func (s *Session) apply(op Op) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("session operation panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	op(s.store)
}
