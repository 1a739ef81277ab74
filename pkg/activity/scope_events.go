package activity

import "strings"

// Scope lifecycle verbs.
const (
	VerbScopeProvided   = "scope.provided"
	VerbScopeForked     = "scope.forked"
	VerbScopeShared     = "scope.shared"
	VerbScopeShareEnded = "scope.share_ended"
	ObjectTypeScope     = "nctx.scope"
)

// ScopeEventInput carries the fields common to scope lifecycle events.
type ScopeEventInput struct {
	Context    string
	RegistryID string
	ParentID   string
	Depth      int
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Metadata   map[string]any
}

// BuildScopeEvent constructs an event for verb about the Registry in input.
func BuildScopeEvent(verb string, input ScopeEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	if input.Context != "" {
		metadata[MetaContext] = input.Context
	}
	if input.ParentID != "" {
		metadata[MetaParentID] = input.ParentID
	}
	metadata[MetaDepth] = input.Depth

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: ObjectTypeScope,
		ObjectID:   strings.TrimSpace(input.RegistryID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
	}
}
