// Package dashboard provides the embedded inspector page for the pickstore
// server.
//
// The page watches one projection of the document over Server-Sent Events
// and posts operations to the dispatch endpoint. Embedding it keeps the
// binary self-contained.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the inspector UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Inspector page with inline CSS and JavaScript
//
// The server replaces every {{.Title}} marker in index.html with the
// HTML-escaped title before serving it.
//
//go:embed assets/*
var Assets embed.FS
