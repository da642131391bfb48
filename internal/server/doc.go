// Package server exposes a document store over HTTP.
//
// This package is internal to pickstore and handles all HTTP concerns:
//
//   - Inspector page: Serves the embedded HTML page at "/"
//   - REST API: "/api/state" reads a projection, "/api/dispatch" applies an op
//   - Server-Sent Events: "/api/sse" streams one projection per client
//   - Metrics: "/metrics" in Prometheus text format when configured
//
// Every SSE client holds a binding on the store, created and released on
// the host loop, so a client is only woken when its own projection changes.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
