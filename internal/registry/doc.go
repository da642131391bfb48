// Package registry tracks the live subscriptions of a single store.
//
// This package is internal to pickstore. A [Registry] is owned by exactly one
// store; there is no package-level state, so independent stores cannot see
// each other's subscribers.
//
// The main components are:
//
//   - [Subscription]: a selector paired with an opaque notify callback
//   - [Registry]: a set of subscriptions keyed by identity
//
// A registry is not safe for concurrent use. It is mutated from the host's
// update goroutine only, the same goroutine that dispatches to the store.
package registry
