package activity

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"
)

// Metadata keys set by BuildScopeEvent.
const (
	MetaContext  = "context"
	MetaParentID = "parent_id"
	MetaDepth    = "depth"
)

// Event reports one scope lifecycle transition: a Registry was provided,
// forked, shared or released from a share token. ObjectID is the Registry id
// and Metadata carries the context name, parent registry and fork depth.
// Identity fields hold whatever the configured scope keys resolved to.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ScopeDetails is the scope position recorded on an Event.
type ScopeDetails struct {
	Context  string
	ParentID string
	Depth    int
}

// Scope reads the scope position BuildScopeEvent stored in the metadata.
// Root scopes report an empty ParentID and depth zero.
func (e Event) Scope() ScopeDetails {
	details := ScopeDetails{}
	details.Context, _ = e.Metadata[MetaContext].(string)
	details.ParentID, _ = e.Metadata[MetaParentID].(string)
	details.Depth, _ = e.Metadata[MetaDepth].(int)
	return details
}

// Valid reports whether the event names a verb and the Registry it is about.
func (e Event) Valid() bool {
	return strings.TrimSpace(e.Verb) != "" &&
		strings.TrimSpace(e.ObjectType) != "" &&
		strings.TrimSpace(e.ObjectID) != ""
}

// ActivityHook receives scope events after normalization.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc lets a plain function observe scope events.
type HookFunc func(ctx context.Context, event Event) error

// Notify calls fn. A nil HookFunc ignores the event.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans a scope event out to every hook in order.
type Hooks []ActivityHook

// Notify normalizes event once and hands the same copy to each hook. Every
// hook runs even when an earlier one fails; failures come back joined. An
// event without a verb or Registry id never reaches the hooks, since a
// listener cannot correlate it with a scope.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 || !event.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	normalized := NormalizeEvent(event)

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims the identity and routing fields and stamps OccurredAt
// when the emitter left it empty. Metadata is copied so a hook editing the
// context name or depth cannot affect the other hooks.
func NormalizeEvent(event Event) Event {
	event.Verb = strings.TrimSpace(event.Verb)
	event.ActorID = strings.TrimSpace(event.ActorID)
	event.UserID = strings.TrimSpace(event.UserID)
	event.TenantID = strings.TrimSpace(event.TenantID)
	event.ObjectType = strings.TrimSpace(event.ObjectType)
	event.ObjectID = strings.TrimSpace(event.ObjectID)
	event.Channel = strings.TrimSpace(event.Channel)
	event.Metadata = cloneMap(event.Metadata)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
