package nctx

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-nctx/layering"
	"github.com/goliatone/go-nctx/pkg/activity"
)

// Option configures a Context at construction.
type Option func(*config)

type config struct {
	logger        Logger
	tracer        trace.Tracer
	emitter       *activity.Emitter
	activityKeys  ActivityKeys
	evaluator     Evaluator
	evaluatorSet  bool
	programCache  ProgramCache
	functions     *FunctionRegistry
	forceOverride bool
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if !cfg.evaluatorSet {
		cfg.evaluator = NewExprEvaluator(
			EngineProgramCache(cfg.programCache),
			EngineFunctions(cfg.functions),
		)
	}
	return cfg
}

// WithForceOverride sets the default for ForceOverride on every Provide call.
// When false, providing a Context that is already active on the branch reuses
// the active Registry.
func WithForceOverride(force bool) Option {
	return func(cfg *config) {
		cfg.forceOverride = force
	}
}

// WithTracer records a span for every Provide and Fork on the Context.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *config) {
		cfg.tracer = tracer
	}
}

// WithActivityHooks emits lifecycle events to hooks.
func WithActivityHooks(hooks activity.Hooks, cfg activity.Config) Option {
	emitter := activity.NewEmitter(hooks, cfg)
	return func(c *config) {
		c.emitter = emitter
	}
}

// ActivityKeys names scope keys whose values populate the identity fields of
// activity events. Nil keys are skipped.
type ActivityKeys struct {
	Actor  any
	User   any
	Tenant any
}

// WithActivityKeys configures which scope keys identify the actor, user and
// tenant on emitted activity events.
func WithActivityKeys(keys ActivityKeys) Option {
	return func(cfg *config) {
		cfg.activityKeys = keys
	}
}

// ScopeOption configures a single Provide or Fork call.
type ScopeOption func(*scopeConfig)

type scopeConfig struct {
	ref           any
	deep          bool
	syncFollowers bool
	forceOverride *bool
	seed          []map[string]any
}

func newScopeConfig(opts []ScopeOption) scopeConfig {
	cfg := scopeConfig{syncFollowers: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// ShareAs shares the Registry created by Provide under ref. See Context.Share.
func ShareAs(ref any) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.ref = ref
	}
}

// DeepFork seeds forked object stores with a deep copy instead of a top-level
// copy.
func DeepFork() ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.deep = true
	}
}

// WithoutFollowers restricts Provide or Fork to the listed Contexts.
func WithoutFollowers() ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.syncFollowers = false
	}
}

// ForceOverride overrides the Context default set by WithForceOverride.
func ForceOverride(force bool) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.forceOverride = &force
	}
}

// WithSeed assigns layers, ordered strongest to weakest, to every Registry
// created by Provide. Layers are merged with layering.MergeLayers.
func WithSeed(layers ...map[string]any) ScopeOption {
	return func(cfg *scopeConfig) {
		cfg.seed = append(cfg.seed, layers...)
	}
}

func (cfg scopeConfig) force(c *Context) bool {
	if cfg.forceOverride != nil {
		return *cfg.forceOverride
	}
	return c.cfg.forceOverride
}

func (cfg scopeConfig) seedValues() map[string]any {
	if len(cfg.seed) == 0 {
		return nil
	}
	return layering.MergeLayers(cfg.seed...)
}
