package pickstore

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// NestedPolicy decides what happens when a dispatch is issued while a
// notification fan-out is still running (typically from inside a notify
// callback).
type NestedPolicy int

const (
	// NestedQueue defers the nested action until the current fan-out ends.
	// Queued actions are applied in the order they were dispatched, and each
	// runs a full fan-out of its own. This is the default.
	NestedQueue NestedPolicy = iota

	// NestedReject refuses the nested action with [ErrNestedDispatch].
	NestedReject

	// NestedInline applies the nested action immediately, inside the running
	// fan-out. Subscriptions later in the outer pass compare against the
	// outer transition's values, not the nested one.
	NestedInline
)

// String returns the configuration name of the policy.
func (p NestedPolicy) String() string {
	switch p {
	case NestedQueue:
		return "queue"
	case NestedReject:
		return "reject"
	case NestedInline:
		return "inline"
	default:
		return fmt.Sprintf("NestedPolicy(%d)", int(p))
	}
}

// ParseNestedPolicy maps a configuration name ("queue", "reject", "inline")
// to a [NestedPolicy]. The empty string selects [NestedQueue].
func ParseNestedPolicy(s string) (NestedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "queue":
		return NestedQueue, nil
	case "reject":
		return NestedReject, nil
	case "inline":
		return NestedInline, nil
	default:
		return 0, fmt.Errorf("unknown nested dispatch policy %q (want queue, reject or inline)", s)
	}
}

// storeConfig holds mutable state during Store construction.
type storeConfig struct {
	name       string
	logger     *slog.Logger
	nested     NestedPolicy
	equal      func(old, next any) bool
	registerer prometheus.Registerer
	tracer     trace.Tracer
}

// Option is a function that configures a [Store] during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails, and [New] or [NewWithReducer] surface that error.
//
// Built-in options: [WithName], [WithLogger], [WithNestedDispatch],
// [WithEquality], [WithMetrics], [WithTracer].
type Option func(*storeConfig) error

// WithName sets the store name used in log lines, metric labels and span
// attributes. Defaults to "store".
//
// Returns an error if the name is blank.
func WithName(name string) Option {
	return func(cfg *storeConfig) error {
		if strings.TrimSpace(name) == "" {
			return errors.New("store name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the store.
//
// The store logs subscription changes and every applied dispatch at Debug
// level, and rejected nested dispatches at Warn. If not specified,
// [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	s, err := pickstore.New(0, pickstore.WithLogger(logger))
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithNestedDispatch sets the [NestedPolicy]. Defaults to [NestedQueue].
//
// Returns an error for an unknown policy value.
func WithNestedDispatch(p NestedPolicy) Option {
	return func(cfg *storeConfig) error {
		switch p {
		case NestedQueue, NestedReject, NestedInline:
			cfg.nested = p
			return nil
		default:
			return fmt.Errorf("unknown nested dispatch policy %d", int(p))
		}
	}
}

// WithEquality replaces the comparison used to decide whether a
// subscription's projection changed. The function reports true when old and
// next are equal, in which case the subscriber is not notified.
//
// Defaults to a shallow comparison: scalars by value (NaN equal to itself),
// records and lists element by element with each element compared by
// identity.
//
// Nil functions are silently ignored.
func WithEquality(equal func(old, next any) bool) Option {
	return func(cfg *storeConfig) error {
		if equal == nil {
			return nil
		}
		cfg.equal = equal
		return nil
	}
}

// WithMetrics registers the store's Prometheus collectors with reg.
//
// Several stores may share a registry as long as each has a distinct
// [WithName]. Without this option no metrics are recorded.
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	s, err := pickstore.New(state, pickstore.WithName("session"), pickstore.WithMetrics(reg))
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *storeConfig) error {
		if reg == nil {
			return errors.New("metrics registerer cannot be nil")
		}
		cfg.registerer = reg
		return nil
	}
}

// WithTracer sets the tracer used to open one span per applied dispatch.
// Defaults to the tracer of the global OpenTelemetry provider, which is a
// no-op until the application installs one.
//
// Returns an error if the tracer is nil.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *storeConfig) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		cfg.tracer = tracer
		return nil
	}
}
