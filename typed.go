package nctx

import (
	"context"
	"fmt"

	"github.com/goliatone/go-nctx/internal/hydrate"
)

// GetAs resolves key like Get and asserts the result to T. An absent value
// yields the zero T and ok false; a value of another type fails with
// ErrTypeMismatch.
func GetAs[T any](ctx context.Context, c *Context, key any) (value T, ok bool, err error) {
	raw, err := c.Get(ctx, key)
	if err != nil || raw == nil {
		return value, false, err
	}
	value, ok = raw.(T)
	if !ok {
		return value, false, mismatch[T](c, "get_as", key, raw)
	}
	return value, true, nil
}

// RequireAs is Require followed by a type assertion to T.
func RequireAs[T any](ctx context.Context, c *Context, key any) (T, error) {
	var zero T
	raw, err := c.Require(ctx, key)
	if err != nil {
		return zero, err
	}
	value, ok := raw.(T)
	if !ok {
		return zero, mismatch[T](c, "require_as", key, raw)
	}
	return value, nil
}

func mismatch[T any](c *Context, op string, key, raw any) error {
	var zero T
	return &ScopeError{
		Context: c.name,
		Op:      op,
		Err:     fmt.Errorf("%w: %s holds %T, want %T", ErrTypeMismatch, describeKey(key), raw, zero),
	}
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	strict    bool
	useNumber bool
	normalize []func(map[string]any) (map[string]any, error)
}

// DecodeStrict rejects fields that T does not declare.
func DecodeStrict() DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.strict = true
	}
}

// DecodeUseNumber decodes numbers into json.Number when T holds interface
// values.
func DecodeUseNumber() DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.useNumber = true
	}
}

// DecodeNormalize rewrites the payload before decoding. fn receives a copy.
func DecodeNormalize(fn func(map[string]any) (map[string]any, error)) DecodeOption {
	return func(cfg *decodeConfig) {
		if fn != nil {
			cfg.normalize = append(cfg.normalize, fn)
		}
	}
}

// Decode converts the object found at key into T through its JSON form. A
// nil key decodes the whole object store. Values already of type T are
// returned as is.
func Decode[T any](ctx context.Context, c *Context, key any, opts ...DecodeOption) (T, error) {
	var zero T
	raw, err := c.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if typed, ok := raw.(T); ok {
		return typed, nil
	}
	payload, ok := raw.(map[string]any)
	if !ok {
		if raw == nil {
			return zero, &RequiredError{Context: c.name, Key: key, Strict: true}
		}
		return zero, mismatch[T](c, "decode", key, raw)
	}

	cfg := decodeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	var decoderOpts []hydrate.DecoderOption[T]
	if cfg.strict {
		decoderOpts = append(decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
	if cfg.useNumber {
		decoderOpts = append(decoderOpts, hydrate.WithUseNumber[T]())
	}
	for _, fn := range cfg.normalize {
		normalize := fn
		decoderOpts = append(decoderOpts, hydrate.WithPreHook[T](func(_ hydrate.Source, payload map[string]any) (map[string]any, error) {
			return normalize(payload)
		}))
	}

	src := hydrate.Source{Context: c.name}
	if key != nil {
		src.Key = fmt.Sprint(key)
	}
	value, err := hydrate.NewDecoder(decoderOpts...).Decode(src, payload)
	if err != nil {
		return zero, &ScopeError{Context: c.name, Op: "decode", Err: err}
	}
	return value, nil
}
