package nctx

import (
	"context"
	"time"
)

// Evaluate runs expression against a snapshot of the object store bound for c
// on ctx. The snapshot's top-level keys are variables; scope exposes the
// context name, registry id and depth.
func (c *Context) Evaluate(ctx context.Context, expression string) (any, error) {
	return c.EvaluateWith(ctx, RuleContext{}, expression)
}

// EvaluateWith is Evaluate with caller supplied args, metadata and clock. A
// nil rule.Snapshot is filled from the bound object store; an explicit
// snapshot is used as is, but the scope info always describes the binding.
func (c *Context) EvaluateWith(ctx context.Context, rule RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	reg, err := c.registry(ctx, "evaluate")
	if err != nil {
		return nil, err
	}
	evaluator := c.cfg.evaluator
	if evaluator == nil {
		return nil, &ScopeError{Context: c.name, Op: "evaluate", Err: ErrNoEvaluator}
	}
	if rule.Snapshot == nil {
		rule.Snapshot = reg.Object()
	}
	rule.Scope = scopeInfo(c, reg)
	rule = rule.withDefaults()

	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(rule, expression)
	evalErr = wrapEvaluationError(engine, expression, rule.scopeLabel(), evalErr)
	c.cfg.logger.Log(LogEvent{
		Op:       "evaluate",
		Context:  c.name,
		Registry: reg.ID(),
		Engine:   engine,
		Expr:     expression,
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case *exprEvaluator:
		return engineExpr
	case *celEvaluator:
		return engineCEL
	case nil:
		return "unknown"
	}
	if named, ok := e.(interface{ Engine() string }); ok {
		return named.Engine()
	}
	return "custom"
}
