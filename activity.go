package nctx

import (
	"context"
	"fmt"

	"github.com/goliatone/go-nctx/pkg/activity"
)

// emit sends a lifecycle event for reg. Hook failures are logged and never
// interrupt the scope operation.
func (c *Context) emit(ctx context.Context, verb string, reg *Registry, metadata map[string]any) {
	if !c.cfg.emitter.Enabled() {
		return
	}
	input := activity.ScopeEventInput{
		Context:    c.name,
		RegistryID: reg.ID(),
		Depth:      reg.Depth(),
		ActorID:    identityValue(reg, c.cfg.activityKeys.Actor),
		UserID:     identityValue(reg, c.cfg.activityKeys.User),
		TenantID:   identityValue(reg, c.cfg.activityKeys.Tenant),
		Metadata:   metadata,
	}
	if parent := reg.Parent(); parent != nil {
		input.ParentID = parent.ID()
	}
	if err := c.cfg.emitter.Emit(ctx, activity.BuildScopeEvent(verb, input)); err != nil {
		c.cfg.logger.Log(LogEvent{Op: "activity", Context: c.name, Registry: reg.ID(), Err: err})
	}
}

func identityValue(reg *Registry, key any) string {
	if !validKey(key) {
		return ""
	}
	value, ok := reg.Lookup(key)
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
