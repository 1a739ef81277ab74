package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	nctx "github.com/goliatone/go-nctx"
	"github.com/goliatone/go-nctx/layering"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// ErrNoSnapshots is returned by Resolve when none of the refs was stored.
var ErrNoSnapshots = errors.New("state: no snapshots found")

// SystemScope is the only scope whose refs carry no ID.
const SystemScope = "system"

// Ref identifies one persisted snapshot.
type Ref struct {
	Domain string `json:"domain"`
	Scope  string `json:"scope"`
	ID     string `json:"id,omitempty"`
}

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	switch r.Scope {
	case "":
		return "", fmt.Errorf("state: scope is required")
	case SystemScope:
		return fmt.Sprintf("%s/%s", SystemScope, r.Domain), nil
	}
	if r.ID == "" {
		return "", fmt.Errorf("state: missing id for scope %q", r.Scope)
	}
	return fmt.Sprintf("%s/%s/%s", r.Scope, r.ID, r.Domain), nil
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot for a single ref. A non-empty meta.ETag
// passed to Save must match the stored ETag.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot map[string]any, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot map[string]any, meta Meta) (Meta, error)
}

// Mutator edits a loaded snapshot in place.
type Mutator func(snapshot map[string]any) error

// Resolver orchestrates loads and saves against Store.
type Resolver struct {
	Store Store
	// Validate, when set, runs on every snapshot before Mutate saves it.
	Validate func(map[string]any) error
}

// Layer is one loaded snapshot.
type Layer struct {
	Ref      Ref
	Meta     Meta
	Snapshot map[string]any
}

// Load returns the stored snapshots for refs in the given order, skipping
// refs with nothing stored.
func (r Resolver) Load(ctx context.Context, refs ...Ref) ([]Layer, error) {
	if r.Store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	layers := make([]Layer, 0, len(refs))
	for _, ref := range refs {
		snapshot, meta, ok, err := r.Store.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope, err)
		}
		if !ok {
			continue
		}
		layers = append(layers, Layer{Ref: ref, Meta: meta, Snapshot: snapshot})
	}
	return layers, nil
}

// Resolve merges the snapshots for refs, strongest first.
func (r Resolver) Resolve(ctx context.Context, refs ...Ref) (map[string]any, error) {
	if len(refs) == 0 {
		return nil, fmt.Errorf("state: at least one ref is required")
	}
	layers, err := r.Load(ctx, refs...)
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, ErrNoSnapshots
	}
	return layering.MergeLayers(snapshots(layers)...), nil
}

// ResolveWithDefaults is Resolve with defaults as the weakest layer. It never
// fails with ErrNoSnapshots.
func (r Resolver) ResolveWithDefaults(ctx context.Context, defaults map[string]any, refs ...Ref) (map[string]any, error) {
	layers, err := r.Load(ctx, refs...)
	if err != nil {
		return nil, err
	}
	return layering.MergeLayers(append(snapshots(layers), defaults)...), nil
}

// Seed returns a ScopeOption that assigns the snapshots for refs to every
// Registry created by Provide.
func (r Resolver) Seed(ctx context.Context, refs ...Ref) (nctx.ScopeOption, error) {
	layers, err := r.Load(ctx, refs...)
	if err != nil {
		return nil, err
	}
	return nctx.WithSeed(snapshots(layers)...), nil
}

// Restore merges the snapshots for refs into the Registry bound for c.
func (r Resolver) Restore(ctx context.Context, c *nctx.Context, refs ...Ref) error {
	resolved, err := r.Resolve(ctx, refs...)
	if err != nil {
		return err
	}
	return c.Merge(ctx, resolved)
}

// Capture saves the object store bound for c under ref.
func (r Resolver) Capture(ctx context.Context, c *nctx.Context, ref Ref, meta Meta) (Meta, error) {
	if r.Store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	snapshot, err := c.All(ctx)
	if err != nil {
		return Meta{}, err
	}
	saved, err := r.Store.Save(ctx, ref, snapshot, meta)
	if err != nil {
		return Meta{}, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope, err)
	}
	return saved, nil
}

// Mutate loads one snapshot, applies fn, validates, then saves. A non-empty
// meta.ETag must match the loaded one.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator) (map[string]any, Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return nil, Meta{}, err
	}
	if fn == nil {
		return nil, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q for scope %q: %w", ref.Domain, ref.Scope, err)
	}
	if !ok || snapshot == nil {
		snapshot = map[string]any{}
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return nil, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	snapshot = layering.CloneMap(snapshot)
	if err := fn(snapshot); err != nil {
		return nil, loadedMeta, err
	}
	if r.Validate != nil {
		if err := r.Validate(snapshot); err != nil {
			return nil, loadedMeta, err
		}
	}

	savedMeta, err := r.Store.Save(ctx, ref, snapshot, mergeMeta(loadedMeta, meta))
	if err != nil {
		return nil, loadedMeta, fmt.Errorf("state: save %q for scope %q: %w", ref.Domain, ref.Scope, err)
	}
	return snapshot, savedMeta, nil
}

func snapshots(layers []Layer) []map[string]any {
	out := make([]map[string]any, 0, len(layers))
	for _, layer := range layers {
		out = append(out, layer.Snapshot)
	}
	return out
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
