// Package host provides the single goroutine that owns a store.
//
// This package is internal to pickstore. Stores have no internal locking,
// so hosts that receive work from many goroutines (the HTTP server, the
// replay command) funnel every store operation through a [Loop]: the
// server-side equivalent of a UI render thread.
//
// Users of the pickstore library should not need to interact with this
// package directly.
package host
