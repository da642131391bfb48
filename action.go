package pickstore

import (
	"fmt"
	"reflect"
)

// ActionKind discriminates the three shapes a dispatch can take.
type ActionKind int

const (
	// ActionReplace replaces the store value with a literal.
	ActionReplace ActionKind = iota + 1

	// ActionUpdate computes the next value from the current one.
	ActionUpdate

	// ActionReduce hands an opaque message to the store's reducer.
	ActionReduce
)

// String returns the lowercase name of the kind, used in logs and metrics.
func (k ActionKind) String() string {
	switch k {
	case ActionReplace:
		return "replace"
	case ActionUpdate:
		return "update"
	case ActionReduce:
		return "reduce"
	default:
		return "unknown"
	}
}

// Action is the tagged form of a dispatch argument.
//
// Exactly one payload field is meaningful, selected by Kind. [Store.Dispatch]
// builds an Action from an untyped argument; hosts that already know the
// shape can build one directly and call [Store.DispatchAction].
type Action[T, A any] struct {
	Kind ActionKind

	// Value is the replacement for ActionReplace.
	Value T

	// Updater computes the next value for ActionUpdate.
	Updater func(T) T

	// Message is forwarded to the reducer for ActionReduce.
	Message A
}

// Replace returns an [ActionReplace] action carrying v.
func Replace[T, A any](v T) Action[T, A] {
	return Action[T, A]{Kind: ActionReplace, Value: v}
}

// Update returns an [ActionUpdate] action carrying fn.
func Update[T, A any](fn func(T) T) Action[T, A] {
	return Action[T, A]{Kind: ActionUpdate, Updater: fn}
}

// Reduce returns an [ActionReduce] action carrying msg.
func Reduce[T, A any](msg A) Action[T, A] {
	return Action[T, A]{Kind: ActionReduce, Message: msg}
}

// payload returns the meaningful field of a as an untyped value.
func (a Action[T, A]) payload() any {
	switch a.Kind {
	case ActionUpdate:
		return a.Updater
	case ActionReduce:
		return a.Message
	default:
		return a.Value
	}
}

// classify turns an untyped dispatch argument into an [Action].
//
// With a reducer the argument is forwarded verbatim: values and functions are
// not interpreted. Without one, an updater function selects [ActionUpdate]
// and anything assignable to T selects [ActionReplace].
func (s *Store[T, A]) classify(action any) (Action[T, A], error) {
	if s.reducer != nil {
		msg, ok := assertAs[A](action)
		if !ok {
			return Action[T, A]{}, fmt.Errorf("%w: reducer expects %s, got %T",
				ErrActionType, reflect.TypeFor[A](), action)
		}
		return Action[T, A]{Kind: ActionReduce, Message: msg}, nil
	}

	if fn, ok := asUpdater[T](action); ok {
		return Action[T, A]{Kind: ActionUpdate, Updater: fn}, nil
	}

	v, ok := assertAs[T](action)
	if !ok {
		return Action[T, A]{}, fmt.Errorf("%w: store holds %s, got %T",
			ErrActionType, reflect.TypeFor[T](), action)
	}
	return Action[T, A]{Kind: ActionReplace, Value: v}, nil
}

// resolve checks a typed action against the store's mode. Actions whose kind
// does not match the mode are reclassified from their payload, so a replace
// or update action sent to a reducer store reaches the reducer verbatim.
func (s *Store[T, A]) resolve(act Action[T, A]) (Action[T, A], error) {
	switch {
	case act.Kind == ActionReduce && s.reducer != nil:
		return act, nil
	case act.Kind == ActionReplace && s.reducer == nil:
		return act, nil
	case act.Kind == ActionUpdate && s.reducer == nil:
		if act.Updater == nil {
			return Action[T, A]{}, fmt.Errorf("%w: nil updater", ErrActionType)
		}
		return act, nil
	case act.Kind >= ActionReplace && act.Kind <= ActionReduce:
		return s.classify(act.payload())
	default:
		return Action[T, A]{}, fmt.Errorf("%w: invalid action kind %d", ErrActionType, int(act.Kind))
	}
}

// asUpdater is the single place that decides whether a dispatch argument is
// an updater function rather than a literal value.
func asUpdater[T any](action any) (func(T) T, bool) {
	fn, ok := action.(func(T) T)
	if !ok || fn == nil {
		return nil, false
	}
	return fn, true
}

// assertAs converts x to V. An untyped nil converts to the zero V when V
// can hold nil.
func assertAs[V any](x any) (V, bool) {
	if x == nil {
		var zero V
		switch reflect.TypeFor[V]().Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return zero, true
		default:
			return zero, false
		}
	}
	v, ok := x.(V)
	return v, ok
}
