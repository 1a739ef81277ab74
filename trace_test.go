package nctx

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestTraceFollowsFallbackChain(t *testing.T) {
	system := New("system")
	tenant := New("tenant")
	request := New("request")
	_ = request.SetFallback(tenant)
	_ = tenant.SetFallback(system)

	err := ProvideAll(context.Background(), []*Context{system, request}, func(ctx context.Context) error {
		_ = system.Set(ctx, "limits.daily", 10)
		_ = request.Set(ctx, "limits.daily", nil)

		trace, err := request.Trace(ctx, "limits.daily")
		if err != nil {
			return err
		}
		if !trace.Found || trace.Value != 10 || trace.Key != "limits.daily" {
			t.Fatalf("unexpected trace %+v", trace)
		}
		if len(trace.Layers) != 3 {
			t.Fatalf("expected three layers, got %d", len(trace.Layers))
		}
		if !trace.Layers[0].Found || trace.Layers[0].Resolved {
			t.Fatalf("expected nil local value to be found but not resolving: %+v", trace.Layers[0])
		}
		if trace.Layers[1].Provided || trace.Layers[1].Context != "tenant" {
			t.Fatalf("expected unprovided tenant layer recorded: %+v", trace.Layers[1])
		}
		resolver, ok := trace.Resolver()
		if !ok || resolver.Context != "system" || resolver.RegistryID == "" {
			t.Fatalf("expected system to resolve the value: %+v", resolver)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("provide: %v", err)
	}
}

func TestTraceErrors(t *testing.T) {
	c := New("request")
	if _, err := c.Trace(context.Background(), "k"); !errors.Is(err, ErrUnprovided) {
		t.Fatalf("expected ErrUnprovided, got %v", err)
	}
	provide(t, c, func(ctx context.Context) {
		if _, err := c.Trace(ctx, nil); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("expected ErrInvalidKey, got %v", err)
		}
		trace, err := c.Trace(ctx, "missing")
		if err != nil || trace.Found {
			t.Fatalf("expected unresolved trace, got %+v/%v", trace, err)
		}
		if _, ok := trace.Resolver(); ok {
			t.Fatalf("expected no resolver")
		}
	})
}

func TestTraceJSONRoundTrip(t *testing.T) {
	trace := Trace{
		Key:   "theme",
		Value: "dark",
		Found: true,
		Layers: []Provenance{
			{Context: "request", RegistryID: "r1", Provided: true, Found: true, Value: "dark", Resolved: true},
			{Context: "defaults"},
		},
	}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if !reflect.DeepEqual(trace, decoded) {
		t.Fatalf("round trip mismatch:\nwant: %#v\n got: %#v", trace, decoded)
	}
	if _, err := TraceFromJSON([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDescribe(t *testing.T) {
	c := New("settings")
	provide(t, c, func(ctx context.Context) {
		empty, err := c.Describe(ctx)
		if err != nil || len(empty) != 0 || empty == nil {
			t.Fatalf("expected empty non-nil descriptors, got %#v/%v", empty, err)
		}
		_ = c.Assign(ctx, map[string]any{
			"theme":         "dark",
			"limits.daily":  10,
			"tags":          []any{"a"},
			"notifications": map[string]any{},
		})
		_ = c.Set(ctx, flatKey{"hidden"}, 1)

		got, err := c.Describe(ctx)
		if err != nil {
			t.Fatalf("describe: %v", err)
		}
		want := []FieldDescriptor{
			{Path: "limits.daily", Type: "int"},
			{Path: "notifications", Type: "map[string]any"},
			{Path: "tags", Type: "[]string"},
			{Path: "theme", Type: "string"},
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("describe mismatch:\nwant: %#v\n got: %#v", want, got)
		}
	})
}
