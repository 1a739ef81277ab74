package layering

import "maps"

// MergeLayers composes snapshots ordered from strongest to weakest, returning a
// new map that keeps explicit settings from stronger layers while filling any
// missing data from weaker ones. Inputs are never mutated.
func MergeLayers(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for _, layer := range layers {
		Defaults(merged, layer)
	}
	return merged
}

// Defaults fills keys missing from dst with cloned values from src, recursing
// into nested maps present on both sides. Existing keys in dst always win,
// including keys holding nil.
func Defaults(dst, src map[string]any) {
	if dst == nil {
		return
	}
	for key, weak := range src {
		strong, exists := dst[key]
		if !exists {
			dst[key] = Clone(weak)
			continue
		}
		strongMap, ok := strong.(map[string]any)
		if !ok {
			continue
		}
		if weakMap, ok := weak.(map[string]any); ok {
			Defaults(strongMap, weakMap)
		}
	}
}

// Merge writes src into dst, recursing into nested maps present on both sides.
// Values from src win; maps are merged key by key and every other value
// (slices included) replaces the existing one. Only dst itself is written:
// nested maps on the merge path are replaced by merged copies, so maps that
// dst shares with another owner are left intact.
func Merge(dst, src map[string]any) {
	if dst == nil {
		return
	}
	for key, incoming := range src {
		incomingMap, incomingIsMap := incoming.(map[string]any)
		existingMap, existingIsMap := dst[key].(map[string]any)
		if incomingIsMap && existingIsMap && existingMap != nil {
			merged := maps.Clone(existingMap)
			Merge(merged, incomingMap)
			dst[key] = merged
			continue
		}
		dst[key] = Clone(incoming)
	}
}

// Clone deep copies map[string]any and []any containers. Any other value is
// returned as-is, so pointers and structs keep their identity.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return typed
		}
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = Clone(item)
		}
		return out
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Clone(item)
		}
		return out
	default:
		return value
	}
}

// CloneMap is Clone for the top-level object store shape.
func CloneMap(value map[string]any) map[string]any {
	if value == nil {
		return nil
	}
	return Clone(value).(map[string]any)
}
