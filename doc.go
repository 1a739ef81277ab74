// Package nctx propagates scoped, inheritable key-value state along
// context.Context lineages.
//
// A Context names one key space. Provide binds a fresh Registry for it and
// runs a callback; everything reached through the callback's ctx, including
// goroutines started with it, resolves the same Registry. Fork runs a
// callback with a copy of the current Registry, so writes made inside stay
// local and the parent can be reached through GetParent and SetParent.
//
// String and integer keys are paths into a nested object store ("user.role",
// "items[0]"); any other comparable key lives in a flat store. Contexts can
// delegate absent keys to a fallback Context, drag followers along on
// Provide and Fork, and alias Registries across sibling branches with Share.
//
// Expressions can be evaluated against the bound object store with expr
// (default), CEL, or JavaScript when built with the js_eval tag.
package nctx
