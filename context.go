package nctx

import (
	"context"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Context is the public identity of one propagated key space. It never holds
// values itself: each branch of a context.Context lineage resolves its own
// Registry through the binding installed by Provide or Fork.
type Context struct {
	name string
	cfg  config

	mu        sync.RWMutex
	fallback  *Context
	followers []*Context
	shared    map[any]*Registry
}

// bindingKey is unique per Context so several Contexts can be bound on the
// same context.Context lineage.
type bindingKey struct {
	owner *Context
}

// New creates a Context. An empty name is replaced with a generated one so
// diagnostics always identify the Context.
func New(name string, opts ...Option) *Context {
	if name == "" {
		name = "nctx-" + uuid.NewString()[:8]
	}
	return &Context{
		name:   name,
		cfg:    applyOptions(opts),
		shared: map[any]*Registry{},
	}
}

// Name returns the diagnostic name.
func (c *Context) Name() string {
	return c.name
}

// IsProvided reports whether ctx carries a Registry for c.
func (c *Context) IsProvided(ctx context.Context) bool {
	_, ok := c.lookupRegistry(ctx)
	return ok
}

// Registry returns the Registry bound for c on ctx.
func (c *Context) Registry(ctx context.Context) (*Registry, error) {
	return c.registry(ctx, "registry")
}

func (c *Context) lookupRegistry(ctx context.Context) (*Registry, bool) {
	if ctx == nil {
		return nil, false
	}
	reg, ok := ctx.Value(bindingKey{owner: c}).(*Registry)
	return reg, ok && reg != nil
}

func (c *Context) registry(ctx context.Context, op string) (*Registry, error) {
	reg, ok := c.lookupRegistry(ctx)
	if !ok {
		return nil, &ScopeError{Context: c.name, Op: op, Err: ErrUnprovided}
	}
	return reg, nil
}

func (c *Context) bind(ctx context.Context, reg *Registry) context.Context {
	return context.WithValue(ctx, bindingKey{owner: c}, reg)
}

// SetFallback installs other as the read-only delegate for absent keys. A nil
// other removes the fallback. Chains that would lead back to c are rejected.
func (c *Context) SetFallback(other *Context) error {
	for next := other; next != nil; next = next.Fallback() {
		if next == c {
			return &ScopeError{Context: c.name, Op: "fallback", Err: ErrFallbackCycle}
		}
	}
	c.mu.Lock()
	c.fallback = other
	c.mu.Unlock()
	return nil
}

// Fallback returns the installed fallback Context, if any.
func (c *Context) Fallback() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallback
}

// FollowedBy registers follower so it is provided and forked whenever c is.
func (c *Context) FollowedBy(follower *Context) *Context {
	if follower == nil || follower == c {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.followers, follower) {
		c.followers = append(c.followers, follower)
	}
	return c
}

// UnfollowedBy removes follower from c's cascade.
func (c *Context) UnfollowedBy(follower *Context) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.followers = slices.DeleteFunc(c.followers, func(f *Context) bool {
		return f == follower
	})
	return c
}

// Follow makes c mirror leader's Provide and Fork calls.
func (c *Context) Follow(leader *Context) *Context {
	if leader != nil {
		leader.FollowedBy(c)
	}
	return c
}

// Unfollow stops c from mirroring leader.
func (c *Context) Unfollow(leader *Context) *Context {
	if leader != nil {
		leader.UnfollowedBy(c)
	}
	return c
}

// Followers returns a copy of the direct followers in registration order.
func (c *Context) Followers() []*Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.followers)
}

// cascade returns contexts followed by every transitive follower, each once.
func cascade(contexts []*Context) []*Context {
	seen := make(map[*Context]struct{}, len(contexts))
	ordered := make([]*Context, 0, len(contexts))
	queue := slices.Clone(contexts)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}
		ordered = append(ordered, next)
		queue = append(queue, next.Followers()...)
	}
	return ordered
}

func validKey(key any) bool {
	if key == nil {
		return false
	}
	return reflect.TypeOf(key).Comparable()
}
