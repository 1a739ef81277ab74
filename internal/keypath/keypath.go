// Package keypath resolves and writes dotted paths such as "user.role" or
// "items[0].id" inside nested map[string]any / []any trees.
package keypath

import (
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// IsPathKey reports whether key addresses the nested object store. Strings and
// integers do; everything else lives in the flat store.
func IsPathKey(key any) bool {
	switch key.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// Segments converts a path key into its segments. Integers become a single
// segment holding their decimal form.
func Segments(key any) []string {
	switch k := key.(type) {
	case string:
		return Parse(k)
	case int:
		return []string{strconv.Itoa(k)}
	case int8, int16, int32, int64:
		return []string{strconv.FormatInt(reflect.ValueOf(k).Int(), 10)}
	case uint, uint8, uint16, uint32, uint64:
		return []string{strconv.FormatUint(reflect.ValueOf(k).Uint(), 10)}
	default:
		return nil
	}
}

// Parse splits a path on dots and bracket indexes. Empty segments are
// dropped, so "a..b" and "a.b" are equivalent; "" yields a single empty
// segment addressing the "" key.
func Parse(path string) []string {
	if path == "" {
		return []string{""}
	}
	segments := make([]string, 0, strings.Count(path, ".")+1)
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}
	for i := 0; i < len(path); i++ {
		switch ch := path[i]; ch {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				current.WriteString(path[i:])
				i = len(path)
				continue
			}
			inner := strings.Trim(path[i+1:i+end], `"'`)
			segments = append(segments, inner)
			i += end
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	if len(segments) == 0 {
		return []string{path}
	}
	return segments
}

// Get walks segments from root. The bool is false when any segment is missing.
func Get(root any, segments []string) (any, bool) {
	current := root
	for _, segment := range segments {
		switch typed := current.(type) {
		case map[string]any:
			value, ok := typed[segment]
			if !ok {
				return nil, false
			}
			current = value
		case []any:
			idx, ok := index(segment)
			if !ok || idx >= len(typed) {
				return nil, false
			}
			current = typed[idx]
		default:
			value, ok := reflectGet(current, segment)
			if !ok {
				return nil, false
			}
			current = value
		}
	}
	return current, true
}

// Set writes value at segments below root, creating intermediate containers.
// A missing container becomes []any when the next segment is an index and
// map[string]any otherwise; scalar intermediates are overwritten. Existing
// intermediate containers are copied before the write, so only root is
// modified in place.
func Set(root map[string]any, segments []string, value any) {
	if root == nil || len(segments) == 0 {
		return
	}
	setIn(root, segments, value)
}

func setIn(container any, segments []string, value any) any {
	segment := segments[0]
	last := len(segments) == 1

	switch typed := container.(type) {
	case map[string]any:
		if typed == nil {
			typed = map[string]any{}
		}
		if last {
			typed[segment] = value
			return typed
		}
		typed[segment] = setIn(shallowCopy(typed[segment]), segments[1:], value)
		return typed
	case []any:
		idx, ok := index(segment)
		if !ok {
			return setIn(map[string]any{}, segments, value)
		}
		for len(typed) <= idx {
			typed = append(typed, nil)
		}
		if last {
			typed[idx] = value
			return typed
		}
		typed[idx] = setIn(shallowCopy(typed[idx]), segments[1:], value)
		return typed
	default:
		if _, ok := index(segment); ok {
			return setIn([]any{}, segments, value)
		}
		return setIn(map[string]any{}, segments, value)
	}
}

func shallowCopy(container any) any {
	switch typed := container.(type) {
	case map[string]any:
		return maps.Clone(typed)
	case []any:
		return slices.Clone(typed)
	default:
		return container
	}
}

func index(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	idx, err := strconv.Atoi(segment)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

// reflectGet handles typed maps, slices and exported struct fields stored by
// callers, e.g. map[string]string or a *User value.
func reflectGet(value any, segment string) (any, bool) {
	rv := reflect.ValueOf(value)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, false
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		item := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !item.IsValid() {
			return nil, false
		}
		return item.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, ok := index(segment)
		if !ok || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Struct:
		field, ok := rv.Type().FieldByName(segment)
		if !ok || !field.IsExported() {
			return nil, false
		}
		fv, err := rv.FieldByIndexErr(field.Index)
		if err != nil {
			return nil, false
		}
		return fv.Interface(), true
	default:
		return nil, false
	}
}
