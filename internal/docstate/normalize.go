package docstate

import (
	"fmt"
	"time"
)

// Normalize converts a decoded YAML, TOML or JSON value into the canonical
// shape used by documents: numbers become float64, records become
// map[string]any, lists become []any and timestamps become RFC 3339 strings.
//
// Decoders disagree on number types (YAML yields int, TOML int64, JSON
// float64). Without normalization the same logical value loaded from two
// sources would compare as different and wake every subscriber.
func Normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64:
		return val
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	default:
		return val
	}
}

// NormalizeDocument applies [Normalize] to every value of doc. A nil doc
// becomes an empty document.
func NormalizeDocument(doc map[string]any) Document {
	if doc == nil {
		return Document{}
	}
	return Normalize(doc).(map[string]any)
}
