package nctx

import (
	"maps"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/goliatone/go-nctx/internal/keypath"
	"github.com/goliatone/go-nctx/layering"
)

// Registry is the value bound to one scope: a path-addressable object store,
// a flat store for non-path keys, and a link to the Registry it was forked
// from.
type Registry struct {
	id     string
	parent *Registry
	data   atomic.Pointer[stores]
}

// stores can be swapped wholesale by Share, which is why Registry keeps it
// behind an atomic pointer instead of embedding it.
type stores struct {
	mu     sync.RWMutex
	object map[string]any
	flat   map[any]any
}

// NewRegistry returns an empty Registry without a parent.
func NewRegistry() *Registry {
	return newRegistry(nil, map[string]any{}, map[any]any{})
}

func newRegistry(parent *Registry, object map[string]any, flat map[any]any) *Registry {
	r := &Registry{
		id:     uuid.NewString(),
		parent: parent,
	}
	r.data.Store(&stores{object: object, flat: flat})
	return r
}

// ID returns the identifier assigned at creation.
func (r *Registry) ID() string {
	return r.id
}

// Parent returns the Registry active before the fork that produced r, or nil.
func (r *Registry) Parent() *Registry {
	return r.parent
}

// Depth counts the forks between r and the provided root Registry.
func (r *Registry) Depth() int {
	depth := 0
	for p := r.parent; p != nil; p = p.parent {
		depth++
	}
	return depth
}

// Get resolves key, returning nil when absent. A nil key returns a snapshot of
// the whole object store.
func (r *Registry) Get(key any) any {
	if key == nil {
		return r.Object()
	}
	value, _ := r.Lookup(key)
	return value
}

// Lookup resolves key and reports whether it was present.
func (r *Registry) Lookup(key any) (any, bool) {
	s := r.data.Load()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(key)
}

// Set writes value under key. Path keys go to the object store, creating
// intermediate containers; other keys go to the flat store.
func (r *Registry) Set(key, value any) {
	s := r.data.Load()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
}

// Assign calls Set for every entry. Dotted keys are treated as paths.
func (r *Registry) Assign(values map[string]any) {
	if len(values) == 0 {
		return
	}
	s := r.data.Load()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range values {
		s.set(key, value)
	}
}

// Merge deep merges values into the object store. Incoming values win and
// nested maps present on both sides are merged key by key.
func (r *Registry) Merge(values map[string]any) {
	if len(values) == 0 {
		return
	}
	s := r.data.Load()
	s.mu.Lock()
	defer s.mu.Unlock()
	layering.Merge(s.object, values)
}

// Replace stores fn(current) under key while holding the write lock and
// returns the stored value.
func (r *Registry) Replace(key any, fn func(current any) any) any {
	s := r.data.Load()
	s.mu.Lock()
	defer s.mu.Unlock()
	current, _ := s.lookup(key)
	next := fn(current)
	s.set(key, next)
	return next
}

// Object returns a deep copy of the object store.
func (r *Registry) Object() map[string]any {
	s := r.data.Load()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return layering.CloneMap(s.object)
}

// fork builds a child seeded from r. Shallow forks copy top-level entries so
// nested containers stay shared with r until a path write or Merge copies the
// containers along its path; deep forks clone them up front.
func (r *Registry) fork(deep bool) *Registry {
	s := r.data.Load()
	s.mu.RLock()
	object := make(map[string]any, len(s.object))
	if deep {
		layering.Defaults(object, s.object)
	} else {
		maps.Copy(object, s.object)
	}
	flat := maps.Clone(s.flat)
	s.mu.RUnlock()
	if flat == nil {
		flat = map[any]any{}
	}
	return newRegistry(r, object, flat)
}

// replaceBy points r at other's stores so both observe the same values.
func (r *Registry) replaceBy(other *Registry) {
	if other == nil || other == r {
		return
	}
	r.data.Store(other.data.Load())
}

// Keys that cannot be hashed are never stored: lookups report them absent
// and writes drop them.
func (s *stores) lookup(key any) (any, bool) {
	if keypath.IsPathKey(key) {
		return keypath.Get(s.object, keypath.Segments(key))
	}
	if !hashable(key) {
		return nil, false
	}
	value, ok := s.flat[key]
	return value, ok
}

func (s *stores) set(key, value any) {
	if keypath.IsPathKey(key) {
		keypath.Set(s.object, keypath.Segments(key), value)
		return
	}
	if !hashable(key) {
		return
	}
	s.flat[key] = value
}

func hashable(key any) bool {
	return key == nil || reflect.TypeOf(key).Comparable()
}
