// Package docstate provides a record-shaped store value for hosts that speak
// JSON: a [Document] keyed by strings, dot-path selectors over it, and a
// reducer that applies patch operations.
//
// This package is internal to pickstore and backs the HTTP host, the replay
// command and the configuration loader. Documents are never mutated in place:
// [Reduce] copies every map along the patched path and shares everything
// else, so the previous document stays valid for old-versus-new projection
// comparison during a fan-out.
//
// The main components are:
//
//   - [Document]: the store value, a map[string]any
//   - [Lookup] and [Selector]: dot-path navigation
//   - [Op] and [Reduce]: patch operations and the reducer that applies them
//   - [Normalize]: converts decoded YAML, TOML or JSON into a canonical shape
package docstate
