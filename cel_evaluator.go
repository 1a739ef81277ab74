package nctx

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

const engineCEL = "cel"

// celMaxArity bounds the overloads generated for registered functions; CEL
// has no variadic overloads.
const celMaxArity = 4

type celEvaluator struct {
	engineConfig
}

// NewCELEvaluator constructs an Evaluator backed by cel-go. Every top-level
// snapshot key is declared as a dyn variable, so programs are cached per
// expression and key set.
func NewCELEvaluator(opts ...EngineOption) Evaluator {
	return &celEvaluator{engineConfig: applyEngineOptions(opts)}
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, ErrEmptyExpression
	}
	return &celCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, bindings map[string]any) (celgo.Program, error) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	key := strings.Join(names, ",") + "|" + expression
	if cached, ok := e.cached(engineCEL, key); ok {
		if program, ok := cached.(celgo.Program); ok {
			return program, nil
		}
	}

	env, err := e.buildEnv(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.store(engineCEL, key, program)
	return program, nil
}

func (e *celEvaluator) buildEnv(names []string) (*celgo.Env, error) {
	opts := make([]celgo.EnvOption, 0, len(names)+2)
	for _, name := range names {
		if name == "now" {
			opts = append(opts, celgo.Variable(name, celgo.TimestampType))
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	if e.functions != nil {
		opts = append(opts, e.callFunction())
		for _, name := range e.functions.Names() {
			opts = append(opts, e.namedFunction(name))
		}
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) callFunction() celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, celMaxArity+1)
	for arity := 0; arity <= celMaxArity; arity++ {
		params := append([]*celgo.Type{celgo.StringType}, dynParams(arity)...)
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("call_string_dyn%d", arity),
			params,
			celgo.DynType,
			celgo.FunctionBinding(e.binding("", true)),
		))
	}
	return celgo.Function("call", overloads...)
}

func (e *celEvaluator) namedFunction(name string) celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, celMaxArity+1)
	for arity := 0; arity <= celMaxArity; arity++ {
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn%d", name, arity),
			dynParams(arity),
			celgo.DynType,
			celgo.FunctionBinding(e.binding(name, false)),
		))
	}
	return celgo.Function(name, overloads...)
}

func dynParams(n int) []*celgo.Type {
	params := make([]*celgo.Type, n)
	for i := range params {
		params[i] = celgo.DynType
	}
	return params
}

func (e *celEvaluator) binding(name string, nameFromArgs bool) func(values ...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		target := name
		if nameFromArgs {
			if len(values) == 0 {
				return types.NewErr("nctx: call requires a function name")
			}
			fn, ok := values[0].Value().(string)
			if !ok {
				return types.NewErr("nctx: call name must be a string")
			}
			target = fn
			values = values[1:]
		}
		args := make([]any, 0, len(values))
		for _, val := range values {
			args = append(args, val.Value())
		}
		result, err := e.functions.Call(target, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError(engineCEL, fmt.Errorf("compiled rule missing evaluator"))
	}
	ctx = ctx.withDefaults()
	bindings := ctx.bindings()
	program, err := r.evaluator.loadOrCompile(r.expression, bindings)
	if err != nil {
		return nil, wrapEvaluationError(engineCEL, r.expression, ctx.scopeLabel(), err)
	}
	out, _, err := program.Eval(bindings)
	if err != nil {
		return nil, wrapEvaluationError(engineCEL, r.expression, ctx.scopeLabel(), err)
	}
	return out.Value(), nil
}
