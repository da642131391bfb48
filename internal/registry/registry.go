package registry

import (
	"slices"

	"github.com/google/uuid"
)

// Subscription pairs a selector with the callback that wakes its owner.
//
// Membership in a [Registry] is by identity: two subscriptions built from the
// same selector are independent and are notified independently.
type Subscription[T any] struct {
	id       uuid.UUID
	selector func(T) any
	notify   func()
}

// NewSubscription creates a [Subscription] that is not yet registered.
//
// A nil selector projects the whole value. A nil notify is replaced by a no-op.
func NewSubscription[T any](selector func(T) any, notify func()) *Subscription[T] {
	if selector == nil {
		selector = func(v T) any { return v }
	}
	if notify == nil {
		notify = func() {}
	}
	return &Subscription[T]{
		id:       uuid.New(),
		selector: selector,
		notify:   notify,
	}
}

// ID returns the subscription's unique identifier, used for logging.
func (s *Subscription[T]) ID() uuid.UUID {
	return s.id
}

// Select applies the subscription's selector to v.
func (s *Subscription[T]) Select(v T) any {
	return s.selector(v)
}

// Notify invokes the subscription's callback.
func (s *Subscription[T]) Notify() {
	s.notify()
}

// Registry is a set of live subscriptions.
type Registry[T any] struct {
	subs map[*Subscription[T]]struct{}

	// order holds the members in registration order.
	order []*Subscription[T]
}

// New creates an empty [Registry].
func New[T any]() *Registry[T] {
	return &Registry[T]{
		subs: make(map[*Subscription[T]]struct{}),
	}
}

// Add registers sub. It returns false if sub is nil or already registered.
func (r *Registry[T]) Add(sub *Subscription[T]) bool {
	if sub == nil {
		return false
	}
	if _, ok := r.subs[sub]; ok {
		return false
	}
	r.subs[sub] = struct{}{}
	r.order = append(r.order, sub)
	return true
}

// Remove deregisters sub. Removing an absent subscription is a no-op that
// returns false.
func (r *Registry[T]) Remove(sub *Subscription[T]) bool {
	if _, ok := r.subs[sub]; !ok {
		return false
	}
	delete(r.subs, sub)
	if i := slices.Index(r.order, sub); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return true
}

// Has reports whether sub is currently registered.
func (r *Registry[T]) Has(sub *Subscription[T]) bool {
	_, ok := r.subs[sub]
	return ok
}

// Len returns the number of live subscriptions.
func (r *Registry[T]) Len() int {
	return len(r.subs)
}

// Each calls fn for every subscription that was live when Each started.
//
// Iteration works on a snapshot, so fn may add or remove subscriptions.
// Subscriptions added during iteration are not visited. A subscription
// removed before its turn is skipped. Snapshot order follows registration
// order; callers must not rely on it.
func (r *Registry[T]) Each(fn func(*Subscription[T])) {
	snapshot := slices.Clone(r.order)

	for _, sub := range snapshot {
		if !r.Has(sub) {
			continue
		}
		fn(sub)
	}
}
