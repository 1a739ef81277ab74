package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	evt := Event{
		Verb:       " scope.provided ",
		ActorID:    " actor ",
		UserID:     " user ",
		TenantID:   " tenant ",
		ObjectType: " nctx.scope ",
		ObjectID:   " 42 ",
		Channel:    " nctx ",
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "scope.provided" || got.ObjectType != "nctx.scope" || got.ObjectID != "42" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.UserID != "user" || got.TenantID != "tenant" || got.Channel != "nctx" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}
	if err := hooks.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	capture := &CaptureHook{}
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			ctxSeen = ctx != nil
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return boom1 }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbScopeForked, ObjectType: ObjectTypeScope, ObjectID: "1"})
	if !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if got := capture.Verbs(); len(got) != 1 || got[0] != VerbScopeForked {
		t.Fatalf("expected event to be captured once, got %v", got)
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}
	event := Event{Verb: VerbScopeProvided, ObjectType: ObjectTypeScope, ObjectID: "1"}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	var nilEmitter *Emitter
	if nilEmitter.Enabled() {
		t.Fatalf("expected nil emitter to be disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true})
	if err := enabled.Emit(context.Background(), event); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", capture.Events[0].Channel)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbScopeShared,
		ObjectType: ObjectTypeScope,
		ObjectID:   "1",
		Channel:    "custom",
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if !capture.Events[0].OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
}

func TestBuildScopeEventAddsScopeMetadata(t *testing.T) {
	meta := map[string]any{"deep": true}
	event := BuildScopeEvent(VerbScopeForked, ScopeEventInput{
		Context:    "request",
		RegistryID: " reg-2 ",
		ParentID:   "reg-1",
		Depth:      1,
		TenantID:   " acme ",
		Metadata:   meta,
	})

	if event.ObjectType != ObjectTypeScope || event.ObjectID != "reg-2" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.TenantID != "acme" {
		t.Fatalf("expected tenant trimmed, got %q", event.TenantID)
	}
	if got := event.Scope(); got != (ScopeDetails{Context: "request", ParentID: "reg-1", Depth: 1}) {
		t.Fatalf("unexpected scope details: %+v", got)
	}
	if _, ok := meta["parent_id"]; ok {
		t.Fatalf("expected input metadata to stay untouched")
	}
}

func TestEventValidAndRootScope(t *testing.T) {
	cases := []struct {
		name  string
		event Event
		valid bool
	}{
		{name: "complete", event: Event{Verb: VerbScopeProvided, ObjectType: ObjectTypeScope, ObjectID: "r"}, valid: true},
		{name: "blank verb", event: Event{Verb: " ", ObjectType: ObjectTypeScope, ObjectID: "r"}},
		{name: "missing registry", event: Event{Verb: VerbScopeProvided, ObjectType: ObjectTypeScope}},
	}
	for _, tc := range cases {
		if got := tc.event.Valid(); got != tc.valid {
			t.Fatalf("%s: expected valid=%v, got %v", tc.name, tc.valid, got)
		}
	}

	root := BuildScopeEvent(VerbScopeProvided, ScopeEventInput{Context: "request", RegistryID: "reg-1"})
	if got := root.Scope(); got.ParentID != "" || got.Depth != 0 || got.Context != "request" {
		t.Fatalf("unexpected root scope details: %+v", got)
	}
	if got := (Event{}).Scope(); got != (ScopeDetails{}) {
		t.Fatalf("expected zero details without metadata, got %+v", got)
	}
}
