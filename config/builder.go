package config

import (
	"fmt"

	"github.com/jpalmerr/pickstore"
	"github.com/jpalmerr/pickstore/internal/docstate"
)

// DocumentStore is a store over a JSON-like document driven by [docstate.Op].
type DocumentStore = pickstore.Store[docstate.Document, docstate.Op]

// NestedPolicy returns the parsed nested dispatch policy.
// A Config returned by [Parse] has already been validated, so an invalid
// value here falls back to [pickstore.NestedQueue].
func (c *Config) NestedPolicy() pickstore.NestedPolicy {
	p, err := pickstore.ParseNestedPolicy(c.NestedDispatch)
	if err != nil {
		return pickstore.NestedQueue
	}
	return p
}

// InitialState returns a fresh copy of the configured initial document.
func (c *Config) InitialState() docstate.Document {
	return docstate.NormalizeDocument(c.State)
}

// BuildOptions converts parsed configuration into store options.
//
// Extra options are appended after the configured ones, so they win when
// both set the same field.
func BuildOptions(cfg *Config, extra ...pickstore.Option) ([]pickstore.Option, error) {
	policy, err := pickstore.ParseNestedPolicy(cfg.NestedDispatch)
	if err != nil {
		return nil, fmt.Errorf("nested_dispatch: %w", err)
	}

	opts := []pickstore.Option{
		pickstore.WithName(cfg.Name),
		pickstore.WithNestedDispatch(policy),
	}
	return append(opts, extra...), nil
}

// BuildStore creates the document store described by cfg.
func BuildStore(cfg *Config, extra ...pickstore.Option) (*DocumentStore, error) {
	opts, err := BuildOptions(cfg, extra...)
	if err != nil {
		return nil, err
	}
	return pickstore.NewWithReducer(cfg.InitialState(), docstate.Reduce, opts...)
}

// Selector returns the projection a subscriber watches.
func (s SubscriberConfig) Selector() *pickstore.Selector[docstate.Document, any] {
	return pickstore.Select(docstate.Selector(s.Select))
}
