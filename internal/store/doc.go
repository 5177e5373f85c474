// Package store provides the scoped reactive state container behind the
// dashboard panels, and the view store that publishes panel output to
// connected clients.
//
// This package is internal to vitalboard. The main components are:
//
//   - [Store]: keyed state namespaced by scope id, with change notification
//   - [Registry]: ordered, idempotent set of subscribed components
//   - [Session]: the exclusive owner of a Store, applying writes on one goroutine
//   - [Views] / [MemoryViews]: latest panel views with channel pub/sub for SSE
//     and WebSocket streaming
//
// A Store never blocks its caller on slow consumers: subscribers are invoked
// synchronously and are expected to do bounded work. Writes issued from inside
// a subscriber are delivered according to the store's [DispatchMode].
//
// Users of the vitalboard library should not need to interact with this
// package directly.
package store
