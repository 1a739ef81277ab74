package nctx

import (
	"context"

	"github.com/goliatone/go-nctx/pkg/activity"
)

// Provide runs fn with a fresh Registry bound for c and, unless
// WithoutFollowers is given, for every transitive follower of c. The binding
// is visible to fn, to everything fn calls with the derived ctx, and to
// goroutines started with it; it is never visible through the ctx passed in.
//
// When c is already provided on ctx the existing Registry is reused unless
// ForceOverride (or WithForceOverride) asks for a fresh one.
func (c *Context) Provide(ctx context.Context, fn func(context.Context) error, opts ...ScopeOption) error {
	return ProvideAll(ctx, []*Context{c}, fn, opts...)
}

// Fork runs fn with a copy of the Registry bound for c, linked to it as
// parent. Writes inside fn stay in the fork and writes made by the parent
// branch afterwards stay out of it. Followers are forked too unless
// WithoutFollowers is given; followers that are not provided on ctx are
// skipped.
func (c *Context) Fork(ctx context.Context, fn func(context.Context) error, opts ...ScopeOption) error {
	return ForkAll(ctx, []*Context{c}, fn, opts...)
}

// ProvideAll provides every context (plus followers) and runs fn once,
// nested inside all of them. Nil entries are ignored.
func ProvideAll(ctx context.Context, contexts []*Context, fn func(context.Context) error, opts ...ScopeOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := newScopeConfig(opts)
	targets := make([]*Context, 0, len(contexts))
	for _, c := range contexts {
		if c != nil {
			targets = append(targets, c)
		}
	}
	if cfg.syncFollowers {
		targets = cascade(targets)
	}
	return provideChain(ctx, targets, fn, cfg)
}

// ForkAll forks every context (plus provided followers) and runs fn once,
// nested inside all of them. Listed contexts must be provided on ctx.
func ForkAll(ctx context.Context, contexts []*Context, fn func(context.Context) error, opts ...ScopeOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := newScopeConfig(opts)
	targets := make([]*Context, 0, len(contexts))
	listed := make(map[*Context]struct{}, len(contexts))
	for _, c := range contexts {
		if c == nil {
			continue
		}
		listed[c] = struct{}{}
		targets = append(targets, c)
	}
	if cfg.syncFollowers {
		for _, follower := range cascade(targets) {
			if _, ok := listed[follower]; ok {
				continue
			}
			if follower.IsProvided(ctx) {
				targets = append(targets, follower)
				continue
			}
			follower.cfg.logger.Log(LogEvent{Op: "fork", Context: follower.name, Skipped: true})
		}
	}
	return forkChain(ctx, targets, fn, cfg)
}

func provideChain(ctx context.Context, contexts []*Context, fn func(context.Context) error, cfg scopeConfig) error {
	if len(contexts) == 0 {
		return fn(ctx)
	}
	return contexts[0].provide(ctx, func(inner context.Context) error {
		return provideChain(inner, contexts[1:], fn, cfg)
	}, cfg)
}

func forkChain(ctx context.Context, contexts []*Context, fn func(context.Context) error, cfg scopeConfig) error {
	if len(contexts) == 0 {
		return fn(ctx)
	}
	return contexts[0].fork(ctx, func(inner context.Context) error {
		return forkChain(inner, contexts[1:], fn, cfg)
	}, cfg)
}

func (c *Context) provide(ctx context.Context, fn func(context.Context) error, cfg scopeConfig) error {
	if existing, ok := c.lookupRegistry(ctx); ok && !cfg.force(c) {
		c.cfg.logger.Log(LogEvent{Op: "provide", Context: c.name, Registry: existing.ID(), Skipped: true})
		return fn(ctx)
	}

	reg := NewRegistry()
	if seed := cfg.seedValues(); seed != nil {
		reg.Merge(seed)
	}
	ctx = c.bind(ctx, reg)
	if cfg.ref != nil {
		if err := c.Share(ctx, cfg.ref); err != nil {
			return err
		}
	}

	ctx, end := c.startSpan(ctx, "nctx.provide", reg, false)
	c.cfg.logger.Log(LogEvent{Op: "provide", Context: c.name, Registry: reg.ID(), Ref: cfg.ref})
	c.emit(ctx, activity.VerbScopeProvided, reg, map[string]any{"ref_set": cfg.ref != nil})

	err := fn(ctx)
	end(err)
	return err
}

func (c *Context) fork(ctx context.Context, fn func(context.Context) error, cfg scopeConfig) error {
	current, err := c.registry(ctx, "fork")
	if err != nil {
		return err
	}

	reg := current.fork(cfg.deep)
	ctx = c.bind(ctx, reg)

	ctx, end := c.startSpan(ctx, "nctx.fork", reg, cfg.deep)
	c.cfg.logger.Log(LogEvent{Op: "fork", Context: c.name, Registry: reg.ID(), Parent: current.ID(), Deep: cfg.deep})
	c.emit(ctx, activity.VerbScopeForked, reg, map[string]any{"deep": cfg.deep})

	err = fn(ctx)
	end(err)
	return err
}
