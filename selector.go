package pickstore

// Selector is a named projection from a store value T to a part P.
//
// A Selector's identity is its pointer: a [Binding] keeps its subscription
// while it is activated with the same *Selector and re-registers when handed
// a different one, even if both wrap the same function. Create selectors
// once (package level, or once per component) rather than on every
// activation.
type Selector[T, P any] struct {
	fn     func(T) P
	erased func(T) any
}

// Select wraps fn in a new [Selector].
//
// Example:
//
//	var selectName = pickstore.Select(func(u User) string { return u.Name })
//
// Panics if fn is nil.
func Select[T, P any](fn func(T) P) *Selector[T, P] {
	if fn == nil {
		panic("pickstore: Select requires a non-nil function")
	}
	return &Selector[T, P]{
		fn:     fn,
		erased: func(v T) any { return fn(v) },
	}
}

// Identity returns a new [Selector] that projects the whole value.
func Identity[T any]() *Selector[T, T] {
	return Select(func(v T) T { return v })
}

// Apply projects v.
func (s *Selector[T, P]) Apply(v T) P {
	return s.fn(v)
}

// Func returns the projection in the untyped form accepted by
// [Store.Subscribe]. Repeated calls return the same function.
func (s *Selector[T, P]) Func() func(T) any {
	return s.erased
}
