package nctx

import (
	"context"
	"reflect"
)

// Get resolves key on the Registry bound for c. Absent or nil values are
// looked up on the fallback Context, if one is installed. A nil key returns a
// snapshot of the whole object store.
func (c *Context) Get(ctx context.Context, key any) (any, error) {
	value, _, err := c.lookup(ctx, key, "get")
	return value, err
}

// Lookup is Get that also reports whether any Context in the fallback chain
// held the key.
func (c *Context) Lookup(ctx context.Context, key any) (any, bool, error) {
	return c.lookup(ctx, key, "lookup")
}

func (c *Context) lookup(ctx context.Context, key any, op string) (any, bool, error) {
	reg, err := c.registry(ctx, op)
	if err != nil {
		return nil, false, err
	}
	if key == nil {
		return reg.Object(), true, nil
	}
	if !validKey(key) {
		return nil, false, &ScopeError{Context: c.name, Op: op, Err: ErrInvalidKey}
	}
	value, found := reg.Lookup(key)
	if value != nil {
		return value, true, nil
	}
	if fallback := c.Fallback(); fallback != nil {
		fbValue, fbFound, err := fallback.lookup(ctx, key, op)
		if err != nil {
			return nil, false, err
		}
		if fbFound {
			return fbValue, true, nil
		}
	}
	return value, found, nil
}

// GetMany resolves keys in order, returning a slice of the same length.
func (c *Context) GetMany(ctx context.Context, keys ...any) ([]any, error) {
	values := make([]any, len(keys))
	for i, key := range keys {
		value, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

// All returns a deep copy of the object store bound for c. The fallback is
// not consulted.
func (c *Context) All(ctx context.Context) (map[string]any, error) {
	reg, err := c.registry(ctx, "all")
	if err != nil {
		return nil, err
	}
	return reg.Object(), nil
}

// GetDefault is Get that returns nil instead of failing when c is not
// provided on ctx.
func (c *Context) GetDefault(ctx context.Context, key any) any {
	if !c.IsProvided(ctx) {
		return nil
	}
	value, err := c.Get(ctx, key)
	if err != nil {
		return nil
	}
	return value
}

// Set writes value on c's own Registry. The fallback is never written.
func (c *Context) Set(ctx context.Context, key, value any) error {
	reg, err := c.writable(ctx, key, "set")
	if err != nil {
		return err
	}
	reg.Set(key, value)
	return nil
}

// Assign sets every entry of values.
func (c *Context) Assign(ctx context.Context, values map[string]any) error {
	reg, err := c.registry(ctx, "assign")
	if err != nil {
		return err
	}
	reg.Assign(values)
	return nil
}

// Merge deep merges values into the object store; incoming values win.
func (c *Context) Merge(ctx context.Context, values map[string]any) error {
	reg, err := c.registry(ctx, "merge")
	if err != nil {
		return err
	}
	reg.Merge(values)
	return nil
}

// Replace stores fn applied to the current local value of key and returns the
// stored value.
func (c *Context) Replace(ctx context.Context, key any, fn func(current any) any) (any, error) {
	reg, err := c.writable(ctx, key, "replace")
	if err != nil {
		return nil, err
	}
	return reg.Replace(key, fn), nil
}

// Require is Get that fails with a *RequiredError when the value is nil.
func (c *Context) Require(ctx context.Context, key any) (any, error) {
	value, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, &RequiredError{Context: c.name, Key: key, Strict: true}
	}
	return value, nil
}

// RequireNonEmpty is Require that also rejects zero values such as "", 0,
// false and empty maps or slices.
func (c *Context) RequireNonEmpty(ctx context.Context, key any) (any, error) {
	value, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if isEmpty(value) {
		return nil, &RequiredError{Context: c.name, Key: key, Strict: false}
	}
	return value, nil
}

// GetParent resolves key on the Registry this branch was forked from. A nil
// key returns a snapshot of the parent's object store.
func (c *Context) GetParent(ctx context.Context, key any) (any, error) {
	if key != nil && !validKey(key) {
		return nil, &ScopeError{Context: c.name, Op: "get_parent", Err: ErrInvalidKey}
	}
	parent, err := c.parentRegistry(ctx, "get_parent")
	if err != nil {
		return nil, err
	}
	return parent.Get(key), nil
}

// GetParentMany is GetMany against the parent Registry.
func (c *Context) GetParentMany(ctx context.Context, keys ...any) ([]any, error) {
	for _, key := range keys {
		if key != nil && !validKey(key) {
			return nil, &ScopeError{Context: c.name, Op: "get_parent", Err: ErrInvalidKey}
		}
	}
	parent, err := c.parentRegistry(ctx, "get_parent")
	if err != nil {
		return nil, err
	}
	values := make([]any, len(keys))
	for i, key := range keys {
		values[i] = parent.Get(key)
	}
	return values, nil
}

// SetParent writes on the Registry this branch was forked from, which is how a
// fork hands results back to its parent branch.
func (c *Context) SetParent(ctx context.Context, key, value any) error {
	if !validKey(key) {
		return &ScopeError{Context: c.name, Op: "set_parent", Err: ErrInvalidKey}
	}
	parent, err := c.parentRegistry(ctx, "set_parent")
	if err != nil {
		return err
	}
	parent.Set(key, value)
	return nil
}

// AssignParent sets every entry of values on the parent Registry.
func (c *Context) AssignParent(ctx context.Context, values map[string]any) error {
	parent, err := c.parentRegistry(ctx, "assign_parent")
	if err != nil {
		return err
	}
	parent.Assign(values)
	return nil
}

func (c *Context) parentRegistry(ctx context.Context, op string) (*Registry, error) {
	reg, err := c.registry(ctx, op)
	if err != nil {
		return nil, err
	}
	parent := reg.Parent()
	if parent == nil {
		return nil, &ScopeError{Context: c.name, Op: op, Err: ErrNoParent}
	}
	return parent, nil
}

func (c *Context) writable(ctx context.Context, key any, op string) (*Registry, error) {
	if !validKey(key) {
		return nil, &ScopeError{Context: c.name, Op: op, Err: ErrInvalidKey}
	}
	return c.registry(ctx, op)
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() == 0
	default:
		return rv.IsZero()
	}
}
