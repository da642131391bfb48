package docstate

import (
	"errors"
	"fmt"
)

// Operation names accepted by [Reduce].
const (
	OpSet     = "set"
	OpMerge   = "merge"
	OpDelete  = "delete"
	OpIncr    = "incr"
	OpReplace = "replace"
)

// Op is one patch operation applied to a [Document].
type Op struct {
	// Op is the operation name: "set", "merge", "delete", "incr" or "replace".
	Op string `json:"op" yaml:"op" toml:"op"`

	// Path is the dot-notation target. Required for every op except "replace".
	Path string `json:"path,omitempty" yaml:"path" toml:"path"`

	// Value is the operand. For "merge" and "replace" it must be a record;
	// for "incr" it must be a number and defaults to 1.
	Value any `json:"value,omitempty" yaml:"value" toml:"value"`
}

// String returns a compact description for logs and replay output.
func (o Op) String() string {
	if o.Path == "" {
		return o.Op
	}
	return o.Op + " " + o.Path
}

// Validate reports whether o is well formed.
func Validate(o Op) error {
	if err := ValidatePath(o.Path); err != nil {
		return err
	}

	switch o.Op {
	case OpSet:
		if o.Path == "" {
			return errors.New("op 'set' requires a path")
		}
	case OpDelete:
		if o.Path == "" {
			return errors.New("op 'delete' requires a path")
		}
	case OpMerge:
		if _, ok := Normalize(o.Value).(map[string]any); !ok {
			return fmt.Errorf("op 'merge' requires a record value, got %T", o.Value)
		}
	case OpIncr:
		if o.Path == "" {
			return errors.New("op 'incr' requires a path")
		}
		if o.Value != nil {
			if _, ok := Normalize(o.Value).(float64); !ok {
				return fmt.Errorf("op 'incr' requires a numeric value, got %T", o.Value)
			}
		}
	case OpReplace:
		if _, ok := Normalize(o.Value).(map[string]any); !ok {
			return fmt.Errorf("op 'replace' requires a record value, got %T", o.Value)
		}
	case "":
		return errors.New("op is required")
	default:
		return fmt.Errorf("unknown op %q (expected set, merge, delete, incr or replace)", o.Op)
	}
	return nil
}

// Reduce applies o to doc and returns the next document.
//
// doc is never modified. Maps along the target path are copied, everything
// else is shared with doc. Reduce is total: an operation that fails
// [Validate], or that cannot be applied to the current shape of doc (for
// example "incr" on a string), returns doc unchanged.
func Reduce(doc Document, o Op) Document {
	if Validate(o) != nil {
		return doc
	}

	value := Normalize(o.Value)
	parts := splitPath(o.Path)

	var leaf leafFunc
	switch o.Op {
	case OpReplace:
		return value.(map[string]any)

	case OpSet:
		leaf = func(any, bool) (any, edit) {
			return value, editSet
		}

	case OpDelete:
		leaf = func(_ any, exists bool) (any, edit) {
			if !exists {
				return nil, editAbort
			}
			return nil, editDelete
		}

	case OpIncr:
		delta := 1.0
		if value != nil {
			delta = value.(float64)
		}
		leaf = func(old any, exists bool) (any, edit) {
			if !exists || old == nil {
				return delta, editSet
			}
			n, ok := old.(float64)
			if !ok {
				return nil, editAbort
			}
			return n + delta, editSet
		}

	case OpMerge:
		patch := value.(map[string]any)
		leaf = func(old any, exists bool) (any, edit) {
			var base map[string]any
			if exists && old != nil {
				m, ok := old.(map[string]any)
				if !ok {
					return nil, editAbort
				}
				base = m
			}
			merged := make(map[string]any, len(base)+len(patch))
			for k, v := range base {
				merged[k] = v
			}
			for k, v := range patch {
				merged[k] = v
			}
			return merged, editSet
		}

	default:
		return doc
	}

	next, ok := rewrite(doc, parts, leaf)
	if !ok {
		return doc
	}
	return next
}

type edit int

const (
	editSet edit = iota
	editDelete
	editAbort
)

// leafFunc computes the new value at the end of a path.
type leafFunc func(old any, exists bool) (any, edit)

// rewrite copies the maps along parts and applies leaf at the end. It
// returns false when the path traverses a non-record value or leaf aborts.
func rewrite(doc Document, parts []string, leaf leafFunc) (Document, bool) {
	if len(parts) == 0 {
		// only merge targets the root; set/delete/incr require a path
		value, e := leaf(map[string]any(doc), true)
		m, ok := value.(map[string]any)
		if e != editSet || !ok {
			return doc, false
		}
		return m, true
	}

	key := parts[0]
	old, exists := doc[key]

	var value any
	e := editSet
	if len(parts) == 1 {
		value, e = leaf(old, exists)
		if e == editAbort {
			return doc, false
		}
	} else {
		var child map[string]any
		if exists && old != nil {
			m, ok := old.(map[string]any)
			if !ok {
				return doc, false
			}
			child = m
		}
		rewritten, ok := rewrite(child, parts[1:], leaf)
		if !ok {
			return doc, false
		}
		value = rewritten
	}

	next := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		next[k] = v
	}
	if e == editDelete {
		delete(next, key)
	} else {
		next[key] = value
	}
	return next, true
}
