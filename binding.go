package pickstore

// Source is the capability a [Binding] needs from a store: reading the
// current value and registering subscriptions. [*Store] implements it.
type Source[T any] interface {
	Get() T
	Subscribe(selector func(T) any, notify func()) (unsubscribe func())
}

// Lifecycle is a host scope that runs registered cleanups when it ends,
// such as a component unmount or a closed client connection.
type Lifecycle interface {
	OnCleanup(fn func())
}

// BindingState reports whether a [Binding] currently holds a subscription.
type BindingState int

const (
	// Unregistered means the binding holds no subscription, either because
	// it was never activated or because it was closed.
	Unregistered BindingState = iota

	// Registered means the binding holds exactly one live subscription.
	Registered
)

// String returns the lowercase name of the state.
func (s BindingState) String() string {
	switch s {
	case Registered:
		return "registered"
	default:
		return "unregistered"
	}
}

// Binding connects one consumer to a [Source] through a selector.
//
// The consumer calls [Binding.Activate] every time it renders. The first
// activation registers a subscription; later activations reuse it as long as
// the selector is the same *Selector, and swap it when the selector changes.
// [Binding.Close] releases the subscription when the consumer goes away.
//
// Like the store it reads, a Binding must be used from the store's goroutine.
type Binding[T, P any] struct {
	src      Source[T]
	notify   func()
	fallback *Selector[T, P]

	active      *Selector[T, P]
	unsubscribe func()
}

// UseStore binds to the whole store value.
//
// notify is called when the value changes; the consumer then calls
// [Binding.Activate] to read it.
//
// Example:
//
//	b := pickstore.UseStore[Settings](s, rerender)
//	defer b.Close()
//	settings := b.Activate(nil)
func UseStore[T any](src Source[T], notify func()) *Binding[T, T] {
	return newBinding(src, notify, Identity[T]())
}

// PickStore binds to the part of the store value chosen by sel. sel is also
// the default used when [Binding.Activate] is called with nil.
//
// Example:
//
//	var selectTheme = pickstore.Select(func(s Settings) string { return s.Theme })
//
//	b := pickstore.PickStore(s, rerender, selectTheme)
//	defer b.Close()
//	theme := b.Activate(nil)
//
// Panics if src or sel is nil.
func PickStore[T, P any](src Source[T], notify func(), sel *Selector[T, P]) *Binding[T, P] {
	if sel == nil {
		panic("pickstore: PickStore requires a selector")
	}
	return newBinding(src, notify, sel)
}

func newBinding[T, P any](src Source[T], notify func(), fallback *Selector[T, P]) *Binding[T, P] {
	if src == nil {
		panic("pickstore: binding requires a source")
	}
	if notify == nil {
		notify = func() {}
	}
	return &Binding[T, P]{
		src:      src,
		notify:   notify,
		fallback: fallback,
	}
}

// Activate ensures the binding is subscribed with sel and returns the
// current projection. A nil sel means the binding's default selector.
//
// If the binding is registered with a different selector, that subscription
// is removed before the new one is added. The returned projection is always
// computed from the source's current value.
func (b *Binding[T, P]) Activate(sel *Selector[T, P]) P {
	if sel == nil {
		sel = b.fallback
	}

	if b.unsubscribe != nil && b.active != sel {
		b.release()
	}
	if b.unsubscribe == nil {
		b.active = sel
		b.unsubscribe = b.src.Subscribe(sel.Func(), b.notify)
	}

	return sel.Apply(b.src.Get())
}

// Close removes the binding's subscription. Closing an unregistered binding
// is a no-op; a later [Binding.Activate] registers again.
func (b *Binding[T, P]) Close() {
	b.release()
}

// State reports whether the binding currently holds a subscription.
func (b *Binding[T, P]) State() BindingState {
	if b.unsubscribe != nil {
		return Registered
	}
	return Unregistered
}

// AttachTo closes the binding when l ends.
func (b *Binding[T, P]) AttachTo(l Lifecycle) {
	l.OnCleanup(b.Close)
}

func (b *Binding[T, P]) release() {
	if b.unsubscribe == nil {
		return
	}
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	b.active = nil
	unsubscribe()
}
