// Package vitalboard provides an embeddable dashboard for site build times
// and Core Web Vitals.
//
// A [Board] fetches raw measurement records month by month from upstream
// feeds, holds them in a scoped reactive store and lets dashboard panels
// derive display-ready aggregates from it. Panels are served to browsers
// over REST, Server-Sent Events and WebSocket.
//
// # Quick Start
//
//	builds, _ := vitalboard.NewFeed("builds", vitalboard.KindBuilds,
//	    "https://api.example.com/builds", // ?year=&month= are added per fetch
//	    vitalboard.WithPeriodsURL("https://api.example.com/builds/periods"),
//	)
//	board, _ := vitalboard.New(vitalboard.WithFeed(builds))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	board.Start(ctx) // blocks until ctx is cancelled
//
// # Feeds
//
// Each [Feed] writes into its own store scope, so several feeds coexist
// on one page without key collisions. A feed is either an HTTP API
// (records URL plus periods listing URL, decoded by a [Decoder]) or a
// custom [Source]. [NewFeedGrid] expands a URL template over dimensions
// into one feed per combination.
//
// Built-in decoders:
//
//   - [BuildDecoder]: context, deploy_time, created_at
//   - [VitalsDecoder]: metric, data_float, time_stamp, path
//   - [DefaultDecoder]: accepts the field names of both
//   - [FieldDecoder]: custom field paths
//   - [FirstDecoder]: tries several decoders in order
//
// # Store dispatch
//
// A store write notifies every mounted panel synchronously. With
// [BreadthFirst] (the default) a write made while panels are being
// notified is queued until the current pass completes. [DepthFirst]
// notifies nested writes immediately.
//
// # Architecture
//
//   - record: raw records and calendar months
//   - pipeline: pure derivations (percentiles, thresholds, grouping, buckets)
//   - internal/store: scoped store, subscription registry, session, views
//   - internal/panel: store subscribers that publish views
//   - internal/poller: fetch scheduler and HTTP source
//   - internal/cache: SQLite cache of completed months
//   - internal/postgres: PostgreSQL record source
//   - internal/metrics: Prometheus collectors
//   - internal/server: HTTP server with REST API, SSE and WebSocket
//   - dashboard: embedded web UI
package vitalboard
