package nctx

import (
	"context"
	"errors"
	"testing"
)

func TestProvideBindsOnlyInsideCallback(t *testing.T) {
	c := New("request")
	outer := context.Background()

	if c.IsProvided(outer) {
		t.Fatalf("expected context not provided before Provide")
	}
	err := c.Provide(outer, func(ctx context.Context) error {
		if !c.IsProvided(ctx) {
			t.Fatalf("expected binding inside callback")
		}
		return c.Set(ctx, "user", "ada")
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
	if c.IsProvided(outer) {
		t.Fatalf("binding leaked into the outer context")
	}
	if _, err := c.Get(outer, "user"); !errors.Is(err, ErrUnprovided) {
		t.Fatalf("expected ErrUnprovided outside the scope, got %v", err)
	}
}

func TestProvideReturnsCallbackError(t *testing.T) {
	c := New("request")
	boom := errors.New("boom")
	if err := c.Provide(context.Background(), func(context.Context) error { return boom }); err != boom {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestProvideNilContextUsesBackground(t *testing.T) {
	c := New("request")
	err := c.Provide(nil, func(ctx context.Context) error {
		return c.Set(ctx, "k", "v")
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestProvideReusesActiveRegistryUnlessForced(t *testing.T) {
	c := New("request")
	err := c.Provide(context.Background(), func(ctx context.Context) error {
		outerReg, _ := c.Registry(ctx)
		if err := c.Set(ctx, "k", "outer"); err != nil {
			return err
		}

		if err := c.Provide(ctx, func(ctx context.Context) error {
			reg, _ := c.Registry(ctx)
			if reg != outerReg {
				t.Fatalf("expected nested Provide to reuse the active registry")
			}
			return nil
		}); err != nil {
			return err
		}

		return c.Provide(ctx, func(ctx context.Context) error {
			reg, _ := c.Registry(ctx)
			if reg == outerReg {
				t.Fatalf("expected ForceOverride to create a fresh registry")
			}
			value, err := c.Get(ctx, "k")
			if err != nil {
				return err
			}
			if value != nil {
				t.Fatalf("expected fresh registry to be empty, got %v", value)
			}
			return nil
		}, ForceOverride(true))
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestWithForceOverrideDefault(t *testing.T) {
	c := New("request", WithForceOverride(true))
	err := c.Provide(context.Background(), func(ctx context.Context) error {
		outerReg, _ := c.Registry(ctx)
		if err := c.Provide(ctx, func(ctx context.Context) error {
			if reg, _ := c.Registry(ctx); reg == outerReg {
				t.Fatalf("expected forced fresh registry")
			}
			return nil
		}); err != nil {
			return err
		}
		return c.Provide(ctx, func(ctx context.Context) error {
			if reg, _ := c.Registry(ctx); reg != outerReg {
				t.Fatalf("expected ForceOverride(false) to reuse the registry")
			}
			return nil
		}, ForceOverride(false))
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestProvideWithSeed(t *testing.T) {
	c := New("settings")
	seed := WithSeed(
		map[string]any{"theme": "dark"},
		map[string]any{"theme": "light", "locale": "en"},
	)
	err := c.Provide(context.Background(), func(ctx context.Context) error {
		values, err := c.GetMany(ctx, "theme", "locale")
		if err != nil {
			return err
		}
		if values[0] != "dark" || values[1] != "en" {
			t.Fatalf("unexpected seeded values %v", values)
		}
		return nil
	}, seed)
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestProvideAllNestsEveryContext(t *testing.T) {
	cases := []struct {
		name string
		list func(a, b *Context) []*Context
		opts []ScopeOption
	}{
		{name: "plain", list: func(a, b *Context) []*Context { return []*Context{a, b} }},
		{name: "nil entries", list: func(a, b *Context) []*Context { return []*Context{nil, a, nil, b} }},
		{name: "nil entries without followers", list: func(a, b *Context) []*Context { return []*Context{a, nil, b} }, opts: []ScopeOption{WithoutFollowers()}},
	}
	for _, tc := range cases {
		a, b := New("a"), New("b")
		calls := 0
		err := ProvideAll(context.Background(), tc.list(a, b), func(ctx context.Context) error {
			calls++
			if !a.IsProvided(ctx) || !b.IsProvided(ctx) {
				t.Fatalf("%s: expected both contexts provided", tc.name)
			}
			return nil
		}, tc.opts...)
		if err != nil || calls != 1 {
			t.Fatalf("%s: expected one callback without error, got calls=%d err=%v", tc.name, calls, err)
		}
	}

	calls := 0
	err := ProvideAll(context.Background(), []*Context{nil}, func(context.Context) error {
		calls++
		return nil
	}, WithoutFollowers())
	if err != nil || calls != 1 {
		t.Fatalf("expected only-nil list to run the callback once, got calls=%d err=%v", calls, err)
	}
}

func TestForkIsolation(t *testing.T) {
	c := New("request")
	err := c.Provide(context.Background(), func(ctx context.Context) error {
		if err := c.Set(ctx, "user.role", "viewer"); err != nil {
			return err
		}
		if err := c.Fork(ctx, func(ctx context.Context) error {
			reg, _ := c.Registry(ctx)
			if reg.Depth() != 1 {
				t.Fatalf("expected forked depth 1, got %d", reg.Depth())
			}
			role, err := c.Get(ctx, "user.role")
			if err != nil {
				return err
			}
			if role != "viewer" {
				t.Fatalf("expected fork to inherit parent values, got %v", role)
			}
			return c.Set(ctx, "user.role", "admin")
		}); err != nil {
			return err
		}
		role, err := c.Get(ctx, "user.role")
		if err != nil {
			return err
		}
		if role != "viewer" {
			t.Fatalf("fork write leaked into parent: %v", role)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestForkRequiresProvidedContext(t *testing.T) {
	c := New("request")
	err := c.Fork(context.Background(), func(context.Context) error {
		t.Fatalf("callback must not run")
		return nil
	})
	var scopeErr *ScopeError
	if !errors.As(err, &scopeErr) || scopeErr.Op != "fork" || scopeErr.Context != "request" {
		t.Fatalf("expected fork ScopeError, got %v", err)
	}
	if !errors.Is(err, ErrUnprovided) {
		t.Fatalf("expected ErrUnprovided, got %v", err)
	}
}

func TestDeepForkCopiesNestedContainers(t *testing.T) {
	c := New("request")
	err := c.Provide(context.Background(), func(ctx context.Context) error {
		if err := c.Set(ctx, "tags", []any{"a"}); err != nil {
			return err
		}
		if err := c.Fork(ctx, func(ctx context.Context) error {
			tags, err := c.Get(ctx, "tags")
			if err != nil {
				return err
			}
			tags.([]any)[0] = "changed"
			return nil
		}, DeepFork()); err != nil {
			return err
		}
		tags, err := c.Get(ctx, "tags")
		if err != nil {
			return err
		}
		if tags.([]any)[0] != "a" {
			t.Fatalf("deep fork mutation leaked into parent: %v", tags)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestFollowersCascade(t *testing.T) {
	leader := New("leader")
	mid := New("mid").Follow(leader)
	tail := New("tail").Follow(mid)
	leader.FollowedBy(leader)
	tail.FollowedBy(leader)

	err := leader.Provide(context.Background(), func(ctx context.Context) error {
		if !mid.IsProvided(ctx) || !tail.IsProvided(ctx) {
			t.Fatalf("expected transitive followers provided")
		}
		if err := tail.Set(ctx, "k", "root"); err != nil {
			return err
		}
		return leader.Fork(ctx, func(ctx context.Context) error {
			reg, err := tail.Registry(ctx)
			if err != nil {
				return err
			}
			if reg.Depth() != 1 {
				t.Fatalf("expected follower forked, depth=%d", reg.Depth())
			}
			return tail.Set(ctx, "k", "fork")
		})
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestWithoutFollowers(t *testing.T) {
	leader := New("leader")
	follower := New("follower").Follow(leader)

	err := leader.Provide(context.Background(), func(ctx context.Context) error {
		if follower.IsProvided(ctx) {
			t.Fatalf("expected follower skipped")
		}
		return nil
	}, WithoutFollowers())
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestForkSkipsUnprovidedFollowers(t *testing.T) {
	leader := New("leader")
	follower := New("follower")

	err := leader.Provide(context.Background(), func(ctx context.Context) error {
		leader.FollowedBy(follower)
		return leader.Fork(ctx, func(ctx context.Context) error {
			if follower.IsProvided(ctx) {
				t.Fatalf("expected unprovided follower to stay unprovided")
			}
			return nil
		})
	}, WithoutFollowers())
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestUnfollow(t *testing.T) {
	leader := New("leader")
	follower := New("follower").Follow(leader)
	if len(leader.Followers()) != 1 {
		t.Fatalf("expected one follower")
	}
	follower.Unfollow(leader)
	if len(leader.Followers()) != 0 {
		t.Fatalf("expected follower removed")
	}
	err := leader.Provide(context.Background(), func(ctx context.Context) error {
		if follower.IsProvided(ctx) {
			t.Fatalf("expected removed follower not provided")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestNewGeneratesName(t *testing.T) {
	c := New("")
	if len(c.Name()) != len("nctx-")+8 {
		t.Fatalf("unexpected generated name %q", c.Name())
	}
}
