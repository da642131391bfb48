// Package equality decides whether two selector projections are the same.
//
// This package is internal to pickstore and implements the change-detection
// policy used during a dispatch fan-out. The comparison is structural but
// shallow: containers are compared one level deep and anything nested below
// that level is compared by identity.
//
// The main entry points are:
//
//   - [Shallow]: reports whether two projections are the same
//   - [ShouldUpdate]: the negation of [Shallow], true means "notify"
//
// Shallow comparison bounds the cost of a check to the size of one level of
// the projection regardless of how large the overall value is. A change deep
// inside a nested container that keeps the same reference is invisible, and a
// nested container rebuilt with identical contents is reported as a change.
package equality
