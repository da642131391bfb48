package pickstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jpalmerr/pickstore/internal/equality"
	"github.com/jpalmerr/pickstore/internal/metrics"
	"github.com/jpalmerr/pickstore/internal/registry"
)

const (
	defaultName = "store"
	tracerName  = "github.com/jpalmerr/pickstore"
)

// Reducer computes the next store value from the current one and an action.
// It must be pure: the same state and action always yield the same result.
type Reducer[T, A any] func(state T, action A) T

// Store holds one value of type T and notifies subscribers whose projection
// of that value changed.
//
// A Store is created with [New] or [NewWithReducer] and is confined to a
// single goroutine: it has no internal locking, and [Store.Get],
// [Store.Dispatch] and [Store.Subscribe] must all be called from the goroutine
// that owns it. Hosts that serve concurrent requests run the store on a
// dedicated loop.
//
// The typical lifecycle is:
//
//	s, err := pickstore.New(Counter{})
//	if err != nil {
//	    return err
//	}
//
//	unsubscribe := s.Subscribe(
//	    func(c Counter) any { return c.N },
//	    func() { fmt.Println("n changed:", s.Get().N) },
//	)
//	defer unsubscribe()
//
//	s.Update(func(c Counter) Counter { c.N++; return c })
type Store[T, A any] struct {
	current T
	reducer Reducer[T, A]
	subs    *registry.Registry[T]

	name    string
	equal   func(old, next any) bool
	nested  NestedPolicy
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer

	// depth counts transitions in progress on the call stack.
	depth   int
	pending []Action[T, A]
}

// New creates a [Store] without a reducer.
//
// Dispatching a func(T) T applies it as an updater; dispatching any other
// value assignable to T replaces the current value.
//
// Example:
//
//	s, err := pickstore.New(0, pickstore.WithName("counter"))
//	s.Dispatch(5)                                 // replace
//	s.Dispatch(func(n int) int { return n + 1 })  // update
func New[T any](initial T, opts ...Option) (*Store[T, any], error) {
	return newStore[T, any](initial, nil, opts)
}

// NewWithReducer creates a [Store] whose every dispatch is forwarded
// verbatim to reducer. The reducer is fixed for the store's lifetime.
//
// Example:
//
//	s, err := pickstore.NewWithReducer(Counter{}, func(c Counter, a CounterAction) Counter {
//	    switch a.Type {
//	    case "incr":
//	        c.N++
//	    }
//	    return c
//	})
//	s.Send(CounterAction{Type: "incr"})
//
// Returns an error if reducer is nil or if any option is invalid.
func NewWithReducer[T, A any](initial T, reducer Reducer[T, A], opts ...Option) (*Store[T, A], error) {
	if reducer == nil {
		return nil, errors.New("reducer cannot be nil")
	}
	return newStore(initial, reducer, opts)
}

func newStore[T, A any](initial T, reducer Reducer[T, A], opts []Option) (*Store[T, A], error) {
	cfg := &storeConfig{
		name:   defaultName,
		nested: NestedQueue,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	equal := cfg.equal
	if equal == nil {
		equal = equality.Shallow
	}

	tracer := cfg.tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	var collector *metrics.Collector
	if cfg.registerer != nil {
		collector = metrics.New(cfg.registerer, cfg.name)
	}

	return &Store[T, A]{
		current: initial,
		reducer: reducer,
		subs:    registry.New[T](),
		name:    cfg.name,
		equal:   equal,
		nested:  cfg.nested,
		logger:  logger,
		metrics: collector,
		tracer:  tracer,
	}, nil
}

// Name returns the name set with [WithName].
func (s *Store[T, A]) Name() string {
	return s.name
}

// Get returns the current value. It never blocks and never fails.
func (s *Store[T, A]) Get() T {
	return s.current
}

// Len returns the number of live subscriptions.
func (s *Store[T, A]) Len() int {
	return s.subs.Len()
}

// Dispatch applies action and notifies affected subscribers.
//
// It is equivalent to DispatchContext with [context.Background].
func (s *Store[T, A]) Dispatch(action any) error {
	return s.DispatchContext(context.Background(), action)
}

// DispatchContext applies action and notifies affected subscribers.
//
// With a reducer the action is passed to it unchanged and must be assignable
// to A. Without one, a func(T) T is applied as an updater and anything else
// must be assignable to T and replaces the value. Other shapes return
// [ErrActionType] and leave the store untouched.
//
// Before any subscriber is notified the new value is visible through
// [Store.Get]. Each subscriber whose projection changed is notified exactly
// once. Panics from the reducer, the updater or a notify callback propagate
// to the caller; a panic while computing the next value leaves the store
// unchanged.
//
// A dispatch issued from inside a notify callback is handled according to
// the store's [NestedPolicy].
//
// ctx is only used as the parent of the dispatch span.
func (s *Store[T, A]) DispatchContext(ctx context.Context, action any) error {
	act, err := s.classify(action)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, act)
}

// DispatchAction applies an already tagged action. An action whose kind does
// not fit the store (for example [ActionReplace] on a store with a reducer)
// is reinterpreted from its payload the same way [Store.Dispatch] would.
func (s *Store[T, A]) DispatchAction(ctx context.Context, act Action[T, A]) error {
	act, err := s.resolve(act)
	if err != nil {
		return err
	}
	return s.dispatch(ctx, act)
}

// Set replaces the value with v. On a store with a reducer, v is sent to the
// reducer instead and must be assignable to A.
func (s *Store[T, A]) Set(v T) error {
	return s.DispatchAction(context.Background(), Replace[T, A](v))
}

// Update applies fn to the current value. On a store with a reducer, fn is
// sent to the reducer instead and must be assignable to A.
func (s *Store[T, A]) Update(fn func(T) T) error {
	return s.DispatchAction(context.Background(), Update[T, A](fn))
}

// Send passes msg to the reducer. On a store without a reducer, msg is
// classified the same way [Store.Dispatch] classifies its argument.
func (s *Store[T, A]) Send(msg A) error {
	return s.DispatchAction(context.Background(), Reduce[T](msg))
}

// Subscribe registers a subscription and returns the function that removes
// it. Calling the returned function more than once is a no-op.
//
// selector projects the store value to the part the subscriber cares about;
// nil projects the whole value. notify is called with no arguments after a
// dispatch changes the projection; it should read the new value through
// [Store.Get].
//
// Subscribing with the same selector twice creates two independent
// subscriptions.
func (s *Store[T, A]) Subscribe(selector func(T) any, notify func()) (unsubscribe func()) {
	sub := registry.NewSubscription(selector, notify)
	s.subs.Add(sub)
	s.metrics.SetSubscribers(s.subs.Len())
	s.logger.Debug("subscription added",
		"store", s.name,
		"subscription", sub.ID().String(),
		"subscribers", s.subs.Len(),
	)

	return func() {
		if !s.subs.Remove(sub) {
			return
		}
		s.metrics.SetSubscribers(s.subs.Len())
		s.logger.Debug("subscription removed",
			"store", s.name,
			"subscription", sub.ID().String(),
			"subscribers", s.subs.Len(),
		)
	}
}

// dispatch applies act now or, when called during a fan-out, according to
// the nested policy.
func (s *Store[T, A]) dispatch(ctx context.Context, act Action[T, A]) error {
	if s.depth > 0 {
		switch s.nested {
		case NestedReject:
			s.metrics.ObserveNested("rejected")
			s.logger.Warn("nested dispatch rejected",
				"store", s.name,
				"kind", act.Kind.String(),
			)
			return ErrNestedDispatch
		case NestedInline:
			s.metrics.ObserveNested("inline")
			s.transition(ctx, act)
			return nil
		default:
			s.metrics.ObserveNested("queued")
			s.pending = append(s.pending, act)
			return nil
		}
	}

	// a panic in any transition abandons the queued actions
	defer func() { s.pending = nil }()

	s.transition(ctx, act)
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.transition(ctx, next)
	}
	return nil
}

// transition computes the next value, publishes it and runs one fan-out.
func (s *Store[T, A]) transition(ctx context.Context, act Action[T, A]) {
	start := time.Now()
	_, span := s.tracer.Start(ctx, "pickstore.dispatch", trace.WithAttributes(
		attribute.String("pickstore.store", s.name),
		attribute.String("pickstore.action", act.Kind.String()),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, fmt.Sprint(r))
			panic(r)
		}
	}()

	s.depth++
	defer func() { s.depth-- }()

	old := s.current
	next := s.apply(old, act)
	s.current = next

	notified, skipped := s.fanOut(old, next)

	span.SetAttributes(
		attribute.Int("pickstore.notified", notified),
		attribute.Int("pickstore.skipped", skipped),
	)
	s.metrics.ObserveDispatch(act.Kind.String(), notified, skipped, time.Since(start))
	s.logger.Debug("dispatch applied",
		"store", s.name,
		"kind", act.Kind.String(),
		"notified", notified,
		"skipped", skipped,
		"subscribers", s.subs.Len(),
	)
}

// apply computes the next value for act without touching the store.
func (s *Store[T, A]) apply(old T, act Action[T, A]) T {
	switch act.Kind {
	case ActionReduce:
		return s.reducer(old, act.Message)
	case ActionUpdate:
		return act.Updater(old)
	default:
		return act.Value
	}
}

// fanOut notifies every live subscription whose projection differs between
// old and next.
func (s *Store[T, A]) fanOut(old, next T) (notified, skipped int) {
	s.subs.Each(func(sub *registry.Subscription[T]) {
		if s.equal(sub.Select(old), sub.Select(next)) {
			skipped++
			return
		}
		notified++
		sub.Notify()
	})
	return notified, skipped
}
