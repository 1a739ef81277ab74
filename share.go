package nctx

import (
	"context"

	"github.com/goliatone/go-nctx/pkg/activity"
)

// Share aliases the Registry bound on ctx to ref. The first call for a ref
// records the Registry; later calls from other branches repoint their own
// Registry at the recorded stores, after which every aliased branch reads and
// writes the same values. ref must be comparable.
func (c *Context) Share(ctx context.Context, ref any) error {
	if !validKey(ref) {
		return &ScopeError{Context: c.name, Op: "share", Err: ErrInvalidKey}
	}
	reg, err := c.registry(ctx, "share")
	if err != nil {
		return err
	}

	c.mu.Lock()
	recorded, ok := c.shared[ref]
	if !ok {
		c.shared[ref] = reg
	}
	c.mu.Unlock()

	if ok {
		reg.replaceBy(recorded)
	}
	c.cfg.logger.Log(LogEvent{Op: "share", Context: c.name, Registry: reg.ID(), Ref: ref, Joined: ok})
	c.emit(ctx, activity.VerbScopeShared, reg, map[string]any{"joined": ok})
	return nil
}

// EndShare forgets ref. Branches already aliased stay aliased; the next Share
// with ref starts a new association.
func (c *Context) EndShare(ref any) {
	if !validKey(ref) {
		return
	}
	c.mu.Lock()
	reg, ok := c.shared[ref]
	delete(c.shared, ref)
	c.mu.Unlock()
	if !ok {
		return
	}
	c.cfg.logger.Log(LogEvent{Op: "end_share", Context: c.name, Registry: reg.ID(), Ref: ref})
	c.emit(context.Background(), activity.VerbScopeShareEnded, reg, nil)
}
