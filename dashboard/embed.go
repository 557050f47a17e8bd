// Package dashboard provides the embedded web UI assets for beacon.
//
// This package uses Go's embed directive to include the dashboard HTML
// at compile time, enabling single-binary deployment without external
// asset files.
//
// The embedded assets are served by the server package at the root path
// ("/"). Users of the beacon library should not need to interact with
// this package directly.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Dashboard page with inline CSS and JavaScript
//
// Assets is used by the server package to serve the dashboard.
//
//go:embed assets/*
var Assets embed.FS
