package nctx

import (
	"reflect"
	"testing"
)

type flatKey struct{ name string }

func TestRegistryRoutesKeys(t *testing.T) {
	reg := NewRegistry()
	reg.Set("user.role", "admin")
	reg.Set(3, "three")
	reg.Set(flatKey{"session"}, "s-1")

	if got := reg.Get("user.role"); got != "admin" {
		t.Fatalf("expected path value, got %v", got)
	}
	if got := reg.Get("3"); got != "three" {
		t.Fatalf("expected integer key to address the object store, got %v", got)
	}
	if got := reg.Get(flatKey{"session"}); got != "s-1" {
		t.Fatalf("expected flat value, got %v", got)
	}
	object := reg.Object()
	if _, ok := object["session"]; ok {
		t.Fatalf("flat keys must not leak into the object store: %#v", object)
	}
	if !reflect.DeepEqual(reg.Get(nil), object) {
		t.Fatalf("expected nil key to return the object snapshot")
	}

	reg.Set([]string{"session"}, "dropped")
	if value, ok := reg.Lookup([]string{"session"}); ok || value != nil {
		t.Fatalf("expected unhashable key to be absent, got %v/%v", value, ok)
	}
	if got := reg.Replace(map[string]any{}, func(any) any { return 1 }); got != 1 {
		t.Fatalf("expected Replace to return the computed value, got %v", got)
	}
}

func TestRegistryLookupDistinguishesNil(t *testing.T) {
	reg := NewRegistry()
	reg.Set("explicit", nil)
	if value, ok := reg.Lookup("explicit"); !ok || value != nil {
		t.Fatalf("expected stored nil to be found, got %v/%v", value, ok)
	}
	if _, ok := reg.Lookup("absent"); ok {
		t.Fatalf("expected absent key not to be found")
	}
}

func TestRegistryAssignMergeReplace(t *testing.T) {
	reg := NewRegistry()
	reg.Assign(map[string]any{"a": 1, "b.c": 2})
	reg.Merge(map[string]any{"b": map[string]any{"d": 3}})
	got := reg.Replace("a", func(current any) any { return current.(int) + 10 })

	if got != 11 {
		t.Fatalf("expected replace result 11, got %v", got)
	}
	want := map[string]any{"a": 11, "b": map[string]any{"c": 2, "d": 3}}
	if !reflect.DeepEqual(want, reg.Object()) {
		t.Fatalf("unexpected object %#v", reg.Object())
	}
}

func TestRegistryObjectIsACopy(t *testing.T) {
	reg := NewRegistry()
	reg.Set("a.b", 1)
	snapshot := reg.Object()
	snapshot["a"].(map[string]any)["b"] = 2
	if reg.Get("a.b") != 1 {
		t.Fatalf("expected snapshot mutation not to reach the registry")
	}
}

func TestRegistryForkIsolation(t *testing.T) {
	root := NewRegistry()
	root.Set("user.role", "viewer")
	root.Set("count", 1)
	root.Set(flatKey{"k"}, "root")

	child := root.fork(false)
	child.Set("count", 2)
	child.Set("user.role", "admin")
	child.Set(flatKey{"k"}, "child")
	root.Set("late", true)

	if root.Get("count") != 1 || root.Get("user.role") != "viewer" || root.Get(flatKey{"k"}) != "root" {
		t.Fatalf("fork writes leaked into parent: %#v", root.Object())
	}
	if child.Get("late") != nil {
		t.Fatalf("parent writes after fork leaked into child")
	}
	if child.Parent() != root || child.Depth() != 1 || root.Depth() != 0 {
		t.Fatalf("unexpected lineage: parent=%v depth=%d", child.Parent() == root, child.Depth())
	}
	if child.ID() == root.ID() {
		t.Fatalf("expected distinct registry ids")
	}
}

func TestRegistryShallowForkSharesNestedValues(t *testing.T) {
	root := NewRegistry()
	list := []any{"a"}
	root.Set("list", list)

	shallow := root.fork(false)
	deep := root.fork(true)

	shallowList := shallow.Get("list").([]any)
	deepList := deep.Get("list").([]any)
	if &shallowList[0] != &list[0] {
		t.Fatalf("expected shallow fork to share nested containers")
	}
	if &deepList[0] == &list[0] {
		t.Fatalf("expected deep fork to copy nested containers")
	}
}

func TestRegistryReplaceByAliasesStores(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	a.Set("x", 1)
	b.replaceBy(a)
	b.Set("y", 2)

	if a.Get("y") != 2 || b.Get("x") != 1 {
		t.Fatalf("expected aliased registries to share values")
	}
	if a.ID() == b.ID() {
		t.Fatalf("aliasing must keep registry identity")
	}
	b.replaceBy(nil)
	b.replaceBy(b)
	if b.Get("x") != 1 {
		t.Fatalf("nil and self replaceBy must be no-ops")
	}
}
