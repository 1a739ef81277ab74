// Package state loads and saves object store snapshots of nctx Contexts.
//
// Store only loads and saves a single snapshot for a single Ref. Resolver
// loads several refs and layers them strongest first with
// layering.MergeLayers, either into a plain map (Resolve), into a Provide
// call (Seed), or onto an already provided scope (Restore). Capture and
// Mutate write snapshots back.
//
// Deterministic keys:
//
//	Ref.Identifier() yields `system/<domain>` for the system scope and
//	`<scope>/<id>/<domain>` for every other scope.
//
// The nctx package itself stays persistence agnostic; nothing in it imports
// this package.
package state
