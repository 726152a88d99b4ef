package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asakaida/polylink/internal/entities"
	"github.com/asakaida/polylink/internal/repositories"
)

type dirtyRelation struct {
	desc *entities.RelationDescriptor
	snap *RelationSnapshot
}

// churn counts the rows written by one operation
type churn struct {
	edgesCreated int
	edgesDeleted int
	linksCreated int
	linksDeleted int
}

// Save writes the changes of every dirty relation of rec in one transaction.
// Snapshots become clean only after the transaction commits; on error they
// keep their changes and nothing is persisted. When ctx carries an outer
// transaction, the snapshots wait for that transaction to commit. Saving a
// record without changes does not touch storage.
func (e *Engine) Save(ctx context.Context, rec Record) (err error) {
	start := time.Now()

	dirty := e.dirtyRelations(rec)
	if len(dirty) == 0 {
		return nil
	}
	defer func() {
		e.recorder.RecordOperation("save", time.Since(start), err)
	}()

	if err := verifySave(rec, dirty); err != nil {
		return err
	}

	var stats churn
	err = e.store.WithinTx(ctx, func(ctx context.Context, repo repositories.GraphRepository) error {
		saved := make([][]Record, len(dirty))
		for i, d := range dirty {
			if err := e.apply(ctx, repo, rec, d, &stats); err != nil {
				return err
			}
			saved[i] = d.snap.Current()
		}

		e.store.AfterCommit(ctx, func() {
			for i, d := range dirty {
				d.snap.commitAs(saved[i])
			}
			e.recorder.RecordEdges(stats.edgesCreated, stats.edgesDeleted)
			e.recorder.RecordLinks(stats.linksCreated, stats.linksDeleted)
			e.logger.Debug("relations saved",
				zap.Stringer("record", EndpointOf(rec)),
				zap.Int("relations", len(dirty)),
				zap.Int("edges_created", stats.edgesCreated),
				zap.Int("edges_deleted", stats.edgesDeleted),
				zap.Int("links_created", stats.linksCreated),
				zap.Int("links_deleted", stats.linksDeleted),
			)
		})
		return nil
	})
	if err != nil {
		e.logger.Debug("save rolled back",
			zap.Stringer("record", EndpointOf(rec)),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (e *Engine) dirtyRelations(rec Record) []dirtyRelation {
	snaps := rec.Snapshots()

	var dirty []dirtyRelation
	for _, desc := range e.registry.Relations(rec.RecordType()) {
		if desc.IsReverse() {
			continue
		}
		snap := snaps.Get(desc.Name)
		if snap == nil || !snap.Dirty() {
			continue
		}
		dirty = append(dirty, dirtyRelation{desc: desc, snap: snap})
	}
	return dirty
}

// verifySave checks every pending addition before anything is written
func verifySave(rec Record, dirty []dirtyRelation) error {
	owner := EndpointOf(rec)
	if owner.ID <= 0 {
		return entities.NewVerificationError(owner.Type, "", entities.ErrNotPersisted,
			"save the %s before its relations", owner.Type)
	}

	for _, d := range dirty {
		toAdd, _ := d.snap.Diff()
		for _, m := range toAdd {
			if !d.desc.Allows(m.RecordType()) {
				return entities.NewVerificationError(d.desc.Owner, d.desc.Name, entities.ErrTypeNotAllowed,
					"%s cannot be added to %s.%s", m.RecordType(), d.desc.Owner, d.desc.Name)
			}
			if m.RecordID() <= 0 {
				return entities.NewVerificationError(d.desc.Owner, d.desc.Name, entities.ErrNotPersisted,
					"%s must be saved before it is related", m.RecordType())
			}
		}
	}
	return nil
}

// apply writes the diff of one relation
func (e *Engine) apply(ctx context.Context, repo repositories.GraphRepository, rec Record, d dirtyRelation, stats *churn) error {
	owner := EndpointOf(rec)
	toAdd, toRemove := d.snap.Diff()

	kind, err := repo.Kinds().GetOrCreate(ctx, d.desc.Owner, d.desc.Name)
	if err != nil {
		return fmt.Errorf("failed to get relation kind %s#%s: %w", d.desc.Owner, d.desc.Name, err)
	}

	for _, m := range toAdd {
		edge, created, err := repo.Edges().Create(ctx, owner, EndpointOf(m))
		if err != nil {
			return fmt.Errorf("failed to create edge: %w", err)
		}
		if created {
			stats.edgesCreated++
		}

		linked, err := repo.Links().Link(ctx, edge.ID, kind.ID)
		if err != nil {
			return fmt.Errorf("failed to link edge %d to %s: %w", edge.ID, kind, err)
		}
		if linked {
			stats.linksCreated++
		}
	}

	if len(toRemove) == 0 {
		return nil
	}

	edges, err := repo.Edges().FindByRelation(ctx, owner, d.desc.Name, false)
	if err != nil {
		return fmt.Errorf("failed to find edges of %s.%s: %w", owner, d.desc.Name, err)
	}
	edgeByMember := make(map[entities.Endpoint]int64, len(edges))
	for _, edge := range edges {
		if other, ok := edge.Other(owner); ok {
			edgeByMember[other] = edge.ID
		}
	}

	var ids []int64
	for _, m := range toRemove {
		if id, ok := edgeByMember[EndpointOf(m)]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	unlinked, err := repo.Links().Unlink(ctx, ids, kind.ID)
	if err != nil {
		return fmt.Errorf("failed to unlink edges from %s: %w", kind, err)
	}
	stats.linksDeleted += int(unlinked)

	deleted, err := repo.Edges().DeleteOrphans(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to delete orphan edges: %w", err)
	}
	stats.edgesDeleted += int(deleted)

	return nil
}
