package docstate

import (
	"fmt"
	"strings"
)

// Document is a JSON-like record. Nested records are map[string]any and
// lists are []any after [Normalize].
type Document = map[string]any

// splitPath splits a dot-notation path. An empty path yields no parts and
// addresses the whole document.
func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// ValidatePath reports an error if path has an empty segment, as in "a..b"
// or ".a". The empty path is valid.
func ValidatePath(path string) error {
	for i, part := range splitPath(path) {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("path %q has an empty segment at position %d", path, i)
		}
	}
	return nil
}

// Lookup walks doc using dot notation and returns the value found there.
//
// For example, "user.profile.name" navigates to
// {"user": {"profile": {"name": "Ada"}}}. An empty path returns doc itself.
// The second return value is false if any segment is missing or traverses a
// non-record value.
func Lookup(doc Document, path string) (any, bool) {
	return lookupParts(doc, splitPath(path))
}

func lookupParts(doc Document, parts []string) (any, bool) {
	var current any = doc

	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Selector returns a projection function for path, suitable for subscribing
// to a store holding a [Document]. A missing path projects to nil.
func Selector(path string) func(Document) any {
	parts := splitPath(path)
	return func(doc Document) any {
		v, _ := lookupParts(doc, parts)
		return v
	}
}
