// Package server provides the HTTP server for the vitalboard dashboard and API.
//
// Routes:
//
//   - GET /: the embedded dashboard page
//   - GET /api/views: every panel view as JSON
//   - GET /api/views/{id}: one panel view
//   - GET /api/state: the scopes held by the store
//   - GET /api/state/{scope}: a snapshot of one scope's store keys
//   - POST /api/select: apply a user selection ({scope, key, value})
//   - GET /api/sse: Server-Sent Events stream of view updates
//   - GET /api/ws: WebSocket stream of view updates
//   - GET /metrics: Prometheus metrics, when a handler is configured
//
// Selections are applied on the session goroutine so they never race with
// fetch results. The server shuts down gracefully when its context is
// cancelled, with a 5-second timeout for in-flight requests.
package server
