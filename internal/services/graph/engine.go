// Package graph implements the polymorphic association graph engine.
//
// Records declare relations on a Registry. The Engine loads the members of a
// relation from the edge store into a snapshot held by the record, lets the
// application mutate the in-memory members, and writes the difference back on
// Save. Destroy and DestroyDependents cascade through dependent relations.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/asakaida/polylink/internal/entities"
	"github.com/asakaida/polylink/internal/repositories"
)

// Engine orchestrates loading, diffing and saving of polymorphic relations
type Engine struct {
	store     repositories.GraphStore
	registry  *Registry
	resolver  EntityResolver
	destroyer RecordDestroyer
	logger    *zap.Logger
	recorder  Recorder
}

// NewEngine creates a new graph engine
func NewEngine(store repositories.GraphStore, registry *Registry, resolver EntityResolver, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		registry: registry,
		resolver: resolver,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load returns the snapshot of a relation, loading it from storage on first access
func (e *Engine) Load(ctx context.Context, rec Record, relation string) (*RelationSnapshot, error) {
	desc, err := e.registry.Relation(rec.RecordType(), relation)
	if err != nil {
		return nil, err
	}
	return e.load(ctx, rec, desc)
}

func (e *Engine) load(ctx context.Context, rec Record, desc *entities.RelationDescriptor) (*RelationSnapshot, error) {
	snaps := rec.Snapshots()
	if snap := snaps.Get(desc.Name); snap != nil {
		return snap, nil
	}

	var members []Record
	if rec.RecordID() > 0 {
		start := time.Now()
		var err error
		members, err = e.fetch(ctx, rec, desc)
		e.recorder.RecordOperation("load", time.Since(start), err)
		if err != nil {
			return nil, err
		}
	}

	snap := newRelationSnapshot(members)
	snaps.put(desc.Name, snap)

	e.logger.Debug("relation loaded",
		zap.Stringer("record", EndpointOf(rec)),
		zap.String("relation", desc.Name),
		zap.Int("members", len(snap.current)),
	)
	return snap, nil
}

// fetch reads the members of a relation from storage.
// Members come grouped by type (From order, else type name order), each group in edge order.
func (e *Engine) fetch(ctx context.Context, rec Record, desc *entities.RelationDescriptor) ([]Record, error) {
	ep := EndpointOf(rec)

	edges, err := e.store.Repository(ctx).Edges().FindByRelation(ctx, ep, desc.KindName(), desc.IsReverse())
	if err != nil {
		return nil, fmt.Errorf("failed to load %s.%s: %w", ep, desc.Name, err)
	}
	if len(edges) == 0 {
		return nil, nil
	}

	idsByType := make(map[entities.TypeName][]int64)
	seen := make(map[entities.Endpoint]struct{})
	for _, edge := range edges {
		other, ok := edge.Other(ep)
		if !ok || !desc.Allows(other.Type) {
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		idsByType[other.Type] = append(idsByType[other.Type], other.ID)
	}

	var members []Record
	var missing []entities.Endpoint
	for _, t := range e.typeOrder(desc, idsByType) {
		ids := idsByType[t]
		if len(ids) == 0 {
			continue
		}

		resolved, err := e.resolver.Resolve(ctx, t, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s records: %w", t, err)
		}

		byID := make(map[int64]Record, len(resolved))
		for _, r := range resolved {
			if r != nil && r.RecordType() == t {
				byID[r.RecordID()] = r
			}
		}
		for _, id := range ids {
			if r, ok := byID[id]; ok {
				members = append(members, r)
			} else {
				missing = append(missing, entities.Endpoint{Type: t, ID: id})
			}
		}
	}

	if len(missing) > 0 {
		return nil, &entities.DanglingReferenceError{Owner: ep, Relation: desc.Name, Missing: missing}
	}
	return members, nil
}

func (e *Engine) typeOrder(desc *entities.RelationDescriptor, idsByType map[entities.TypeName][]int64) []entities.TypeName {
	if len(desc.From) > 0 {
		return desc.From
	}
	types := make([]entities.TypeName, 0, len(idsByType))
	for t := range idsByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Get returns the current members of a relation
func (e *Engine) Get(ctx context.Context, rec Record, relation string) ([]Record, error) {
	snap, err := e.Load(ctx, rec, relation)
	if err != nil {
		return nil, err
	}
	return snap.Current(), nil
}

// GetOne returns the first current member of a relation, or nil if it is empty
func (e *Engine) GetOne(ctx context.Context, rec Record, relation string) (Record, error) {
	members, err := e.Get(ctx, rec, relation)
	if err != nil || len(members) == 0 {
		return nil, err
	}
	return members[0], nil
}

// GetByType returns the current members of a relation that are of type t
// Example: GetByType(ctx, user, "viewables", "person")
func (e *Engine) GetByType(ctx context.Context, rec Record, relation string, t entities.TypeName) ([]Record, error) {
	members, err := e.Get(ctx, rec, relation)
	if err != nil {
		return nil, err
	}

	var result []Record
	for _, m := range members {
		if m.RecordType() == t {
			result = append(result, m)
		}
	}
	return result, nil
}

// Set replaces the current members of a relation.
// Nothing is written until Save.
func (e *Engine) Set(ctx context.Context, rec Record, relation string, members []Record) error {
	desc, snap, err := e.mutable(ctx, rec, relation)
	if err != nil {
		return err
	}

	members = dedupe(members)
	if err := verifyMembers(desc, members); err != nil {
		return err
	}

	snap.replace(members)
	return nil
}

// SetOne replaces the member of a has-one relation. A nil member empties it.
func (e *Engine) SetOne(ctx context.Context, rec Record, relation string, member Record) error {
	if member == nil {
		return e.Set(ctx, rec, relation, nil)
	}
	return e.Set(ctx, rec, relation, []Record{member})
}

// Add appends members to a relation. Members already present are ignored.
func (e *Engine) Add(ctx context.Context, rec Record, relation string, members ...Record) error {
	desc, snap, err := e.mutable(ctx, rec, relation)
	if err != nil {
		return err
	}

	next := dedupe(append(snap.Current(), members...))
	if err := verifyMembers(desc, next); err != nil {
		return err
	}

	snap.replace(next)
	return nil
}

// Remove drops members from a relation. Members not present are ignored.
func (e *Engine) Remove(ctx context.Context, rec Record, relation string, members ...Record) error {
	_, snap, err := e.mutable(ctx, rec, relation)
	if err != nil {
		return err
	}

	snap.replace(difference(snap.current, members))
	return nil
}

// Reload discards the snapshot of a relation, including unsaved changes, and loads it again
func (e *Engine) Reload(ctx context.Context, rec Record, relation string) (*RelationSnapshot, error) {
	desc, err := e.registry.Relation(rec.RecordType(), relation)
	if err != nil {
		return nil, err
	}
	rec.Snapshots().Forget(desc.Name)
	return e.load(ctx, rec, desc)
}

// IsDirty reports whether any loaded relation of rec has unsaved changes
func (e *Engine) IsDirty(rec Record) bool {
	for _, snap := range rec.Snapshots().byRelation {
		if snap.Dirty() {
			return true
		}
	}
	return false
}

// mutable loads a relation for mutation. Mirrored relations are read-only projections.
func (e *Engine) mutable(ctx context.Context, rec Record, relation string) (*entities.RelationDescriptor, *RelationSnapshot, error) {
	desc, err := e.registry.Relation(rec.RecordType(), relation)
	if err != nil {
		return nil, nil, err
	}
	if desc.IsReverse() {
		return nil, nil, entities.NewVerificationError(desc.Owner, desc.Name, entities.ErrReadOnlyRelation,
			"modify %s from the declaring side", desc.Through)
	}

	snap, err := e.load(ctx, rec, desc)
	if err != nil {
		return nil, nil, err
	}
	return desc, snap, nil
}

func verifyMembers(desc *entities.RelationDescriptor, members []Record) error {
	if desc.Cardinality == entities.CardinalityOne && len(members) > 1 {
		return entities.NewVerificationError(desc.Owner, desc.Name, entities.ErrCardinality,
			"got %d records", len(members))
	}
	for _, m := range members {
		if !desc.Allows(m.RecordType()) {
			return entities.NewVerificationError(desc.Owner, desc.Name, entities.ErrTypeNotAllowed,
				"%s cannot be added to %s.%s", m.RecordType(), desc.Owner, desc.Name)
		}
	}
	return nil
}

// IsVerificationError reports whether err is or wraps a VerificationError
func IsVerificationError(err error) bool {
	var verr *entities.VerificationError
	return errors.As(err, &verr)
}
