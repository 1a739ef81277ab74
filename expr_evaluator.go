package nctx

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

const engineExpr = "expr"

// exprEvaluator runs expressions with github.com/expr-lang/expr.
type exprEvaluator struct {
	engineConfig
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr. It is the
// engine Evaluate uses when no other is configured.
func NewExprEvaluator(opts ...EngineOption) Evaluator {
	return &exprEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &exprCompiledRule{program: program, expression: expression}, nil
}

func (e *exprEvaluator) loadOrCompile(expression string) (*exprvm.Program, error) {
	if cached, ok := e.cached(engineExpr, expression); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return program, nil
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if registry := e.functions; registry != nil {
		options = append(options, exprlang.Function("call", func(params ...any) (any, error) {
			if len(params) == 0 {
				return nil, fmt.Errorf("nctx: call requires a function name")
			}
			name, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("nctx: call name must be a string, got %T", params[0])
			}
			return registry.Call(name, params[1:]...)
		}))
		for _, name := range registry.Names() {
			fn := name
			options = append(options, exprlang.Function(fn, func(params ...any) (any, error) {
				return registry.Call(fn, params...)
			}))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError(engineExpr, expression, "", err)
	}
	e.store(engineExpr, expression, program)
	return program, nil
}

type exprCompiledRule struct {
	program    *exprvm.Program
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.program == nil {
		return nil, wrapEvaluatorError(engineExpr, fmt.Errorf("compiled rule missing program"))
	}
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(r.program, ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError(engineExpr, r.expression, ctx.scopeLabel(), err)
	}
	return result, nil
}
