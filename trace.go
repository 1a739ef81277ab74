package nctx

import (
	"context"
	"encoding/json"
	"fmt"
)

// Trace records how each Context along a fallback chain answered a lookup.
type Trace struct {
	Key    string       `json:"key"`
	Value  any          `json:"value,omitempty"`
	Found  bool         `json:"found"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how one Context contributed to a traced lookup.
type Provenance struct {
	Context    string `json:"context"`
	RegistryID string `json:"registry_id,omitempty"`
	Depth      int    `json:"depth"`
	Provided   bool   `json:"provided"`
	Found      bool   `json:"found"`
	Value      any    `json:"value,omitempty"`
	Resolved   bool   `json:"resolved,omitempty"`
}

// Trace resolves key like Get while recording every Context of the fallback
// chain. Unlike Get, an unprovided fallback is recorded instead of failing the
// lookup. c itself must be provided on ctx.
func (c *Context) Trace(ctx context.Context, key any) (Trace, error) {
	if !validKey(key) {
		return Trace{}, &ScopeError{Context: c.name, Op: "trace", Err: ErrInvalidKey}
	}
	if _, err := c.registry(ctx, "trace"); err != nil {
		return Trace{}, err
	}

	trace := Trace{Key: fmt.Sprint(key)}
	for layer := c; layer != nil; layer = layer.Fallback() {
		entry := Provenance{Context: layer.name}
		reg, ok := layer.lookupRegistry(ctx)
		if ok {
			entry.Provided = true
			entry.RegistryID = reg.ID()
			entry.Depth = reg.Depth()
			entry.Value, entry.Found = reg.Lookup(key)
			if entry.Value != nil && !trace.Found {
				entry.Resolved = true
				trace.Found = true
				trace.Value = entry.Value
			}
		}
		trace.Layers = append(trace.Layers, entry)
	}
	return trace, nil
}

// Resolver returns the Provenance that supplied the traced value.
func (t Trace) Resolver() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Resolved {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace for logging or transport.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON decodes a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
