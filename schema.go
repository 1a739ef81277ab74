package nctx

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes a path of the object store and the Go type found
// there.
type FieldDescriptor struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Describe lists the leaf paths of the object store bound for c, sorted by
// path. The flat store and the fallback are not described.
func (c *Context) Describe(ctx context.Context) ([]FieldDescriptor, error) {
	reg, err := c.registry(ctx, "describe")
	if err != nil {
		return nil, err
	}
	descriptors := deriveFieldDescriptors(reg.Object(), "")
	if descriptors == nil {
		descriptors = []FieldDescriptor{}
	}
	return descriptors, nil
}

func deriveFieldDescriptors(value any, prefix string) []FieldDescriptor {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{Path: prefix, Type: "map[string]any"}}
		}
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []FieldDescriptor
		for _, key := range keys {
			fields = append(fields, deriveFieldDescriptors(typed[key], joinPath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + elementType}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: typeName(typed)}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
