// Package dashboard provides the embedded web UI for mcpulse.
//
// The page is compiled into the binary, so a single executable serves
// both the API and the UI. It is served by the server package at "/".
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - dashboard page with inline CSS and JavaScript
//
// index.html contains a {{.Title}} placeholder that the server replaces
// with the HTML-escaped dashboard title.
//
//go:embed assets/*
var Assets embed.FS
