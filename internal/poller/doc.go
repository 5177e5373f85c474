// Package poller fetches measurement records for vitalboard feeds.
//
// This package is internal to vitalboard and handles periodic and on-demand
// fetching from upstream sources. It implements a worker pool with a
// configurable concurrency limit.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with timeout and size limits
//   - [HTTPSource]: [Source] backed by a JSON HTTP API
//   - [Scheduler]: polls feeds on their intervals and serves on-demand requests
//   - [FetchResult]: outcome of one fetch
//   - [FeedInfo]: configuration for a feed to poll
//
// Users of the vitalboard library should not need to interact with this
// package directly. Configuration is done through the main vitalboard package.
package poller
