// Package pickstore provides a small external-store container with
// selective subscriber notification.
//
// A [Store] holds one value. Consumers subscribe with a selector that
// projects the value to the part they render; after each dispatch only the
// subscribers whose projection changed are notified. Projections are
// compared shallowly: scalars by value, records and lists element by element
// with each element compared by identity.
//
// # Quick Start
//
//	type Settings struct {
//	    Theme string
//	    Lang  string
//	}
//
//	s, _ := pickstore.New(Settings{Theme: "dark", Lang: "en"})
//
//	s.Subscribe(
//	    func(v Settings) any { return v.Theme },
//	    func() { fmt.Println("theme:", s.Get().Theme) },
//	)
//
//	s.Update(func(v Settings) Settings { v.Lang = "fr"; return v }) // no output
//	s.Update(func(v Settings) Settings { v.Theme = "light"; return v }) // theme: light
//
// # Dispatching
//
// Without a reducer, [Store.Dispatch] accepts either a replacement value or
// an updater func(T) T. With a reducer ([NewWithReducer]) every dispatch is
// passed to the reducer verbatim. The typed shortcuts [Store.Set],
// [Store.Update] and [Store.Send] avoid the untyped argument.
//
// A dispatch issued from inside a notify callback is queued by default and
// applied after the running fan-out completes. See [NestedPolicy].
//
// # Bindings
//
// A [Binding] ties a consumer's lifetime to a subscription. [UseStore] binds
// to the whole value and [PickStore] to a [Selector]:
//
//	var selectTheme = pickstore.Select(func(v Settings) string { return v.Theme })
//
//	b := pickstore.PickStore(s, rerender, selectTheme)
//	theme := b.Activate(nil) // registers on first call
//	...
//	b.Close() // on unmount
//
// # Concurrency
//
// A Store is not safe for concurrent use. Own it from one goroutine, the way
// a UI owns its render thread; the HTTP host in this module runs each store
// on a dedicated loop.
//
// # Observability
//
// [WithLogger] routes debug logs through [log/slog], [WithMetrics] registers
// Prometheus collectors and [WithTracer] opens one OpenTelemetry span per
// dispatch.
package pickstore
