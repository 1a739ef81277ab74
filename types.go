package nctx

import "time"

// ScopeInfo identifies the scope an expression was evaluated against.
type ScopeInfo struct {
	Context    string `json:"context"`
	RegistryID string `json:"registry_id"`
	ParentID   string `json:"parent_id,omitempty"`
	Depth      int    `json:"depth"`
}

func (s ScopeInfo) isZero() bool {
	return s == ScopeInfo{}
}

func scopeInfo(c *Context, reg *Registry) ScopeInfo {
	info := ScopeInfo{Context: c.name, RegistryID: reg.ID(), Depth: reg.Depth()}
	if parent := reg.Parent(); parent != nil {
		info.ParentID = parent.ID()
	}
	return info
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Scope    ScopeInfo
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope.Context == "" {
		return "unknown"
	}
	if ctx.Scope.RegistryID == "" {
		return ctx.Scope.Context
	}
	return ctx.Scope.Context + "/" + ctx.Scope.RegistryID
}

func (ctx RuleContext) scopeBinding() map[string]any {
	if ctx.Scope.isZero() {
		return nil
	}
	return map[string]any{
		"context":     ctx.Scope.Context,
		"registry_id": ctx.Scope.RegistryID,
		"parent_id":   ctx.Scope.ParentID,
		"depth":       ctx.Scope.Depth,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithEvaluator sets the engine used by Evaluate. The default is expr. A nil
// engine, such as NewJSEvaluator without the js_eval tag, makes Evaluate fail
// with ErrNoEvaluator.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
		cfg.evaluatorSet = true
	}
}

// WithProgramCache registers a program cache for the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.programCache = cache
	}
}
