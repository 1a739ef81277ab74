package nctx

import (
	"errors"
	"fmt"
)

var (
	// ErrUnprovided indicates no Registry is bound for the Context on the
	// executing branch.
	ErrUnprovided = errors.New("nctx: context not provided on this branch, call Provide in a parent branch")
	// ErrMissingRequired indicates Require resolved an absent or empty value.
	ErrMissingRequired = errors.New("nctx: missing required context value")
	// ErrNoParent indicates a parent operation ran on a Registry that was not
	// produced by Fork.
	ErrNoParent = errors.New("nctx: registry has no parent, call Fork before using parent accessors")
	// ErrFallbackCycle indicates SetFallback would make the chain loop back.
	ErrFallbackCycle = errors.New("nctx: fallback chain would form a cycle")
	// ErrInvalidKey indicates a key or share token that cannot be stored.
	ErrInvalidKey = errors.New("nctx: invalid key")
	// ErrTypeMismatch indicates a typed accessor found a value of another type.
	ErrTypeMismatch = errors.New("nctx: type mismatch")
	// ErrNoEvaluator indicates no expression engine could be resolved.
	ErrNoEvaluator = errors.New("nctx: evaluator not configured")
	// ErrEmptyExpression indicates Evaluate was called without an expression.
	ErrEmptyExpression = errors.New("nctx: expression must not be empty")
)

// ScopeError records which Context and operation failed to resolve a scope.
type ScopeError struct {
	Context string
	Op      string
	Err     error
}

func (e *ScopeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v (context=%q op=%s)", e.Err, e.Context, e.Op)
}

func (e *ScopeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RequiredError is returned by Require and RequireNonEmpty.
type RequiredError struct {
	Context string
	Key     any
	Strict  bool
}

func (e *RequiredError) Error() string {
	if e == nil {
		return "<nil>"
	}
	mode := "strict"
	if !e.Strict {
		mode = "non-empty"
	}
	return fmt.Sprintf("nctx: missing required context value for %s in context %q (%s)", describeKey(e.Key), e.Context, mode)
}

func (e *RequiredError) Unwrap() error {
	return ErrMissingRequired
}

func describeKey(key any) string {
	if s, ok := key.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v (%T)", key, key)
}
