// Package dashboard provides the embedded web UI for vitalboard.
//
// The page lists every panel view as text and follows updates over the
// SSE stream. It is served by the server package at the root path ("/").
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
