package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asakaida/polylink/internal/entities"
	"github.com/asakaida/polylink/internal/repositories"
)

var errNoDestroyer = errors.New("no record destroyer configured")

// cascade tracks one root destroy
type cascade struct {
	visited   map[entities.Endpoint]struct{}
	destroyed []Record
	stats     churn
}

func newCascade(root Record) *cascade {
	c := &cascade{visited: make(map[entities.Endpoint]struct{})}
	c.visited[EndpointOf(root)] = struct{}{}
	return c
}

// Destroy deletes rec through the RecordDestroyer, severs its graph membership
// and destroys its dependents, all in one transaction.
func (e *Engine) Destroy(ctx context.Context, rec Record) (err error) {
	start := time.Now()
	defer func() {
		e.recorder.RecordOperation("destroy", time.Since(start), err)
	}()

	if e.destroyer == nil {
		return errNoDestroyer
	}
	if rec.RecordID() <= 0 {
		return entities.NewVerificationError(rec.RecordType(), "", entities.ErrNotPersisted, "nothing to destroy")
	}

	c := newCascade(rec)
	err = e.store.WithinTx(ctx, func(ctx context.Context, repo repositories.GraphRepository) error {
		if err := e.destroyer.Destroy(ctx, rec); err != nil {
			return fmt.Errorf("failed to destroy %s: %w", EndpointOf(rec), err)
		}
		c.destroyed = append(c.destroyed, rec)
		if err := e.destroyDependents(ctx, repo, rec, c); err != nil {
			return err
		}
		e.store.AfterCommit(ctx, func() { e.finishCascade(rec, c) })
		return nil
	})
	return e.cascadeFailed(rec, err)
}

// DestroyDependents severs the graph membership of rec and destroys the
// members of its dependent relations. rec itself is left to the caller,
// typically an after-destroy hook that already deleted it.
func (e *Engine) DestroyDependents(ctx context.Context, rec Record) (err error) {
	start := time.Now()
	defer func() {
		e.recorder.RecordOperation("destroy_dependents", time.Since(start), err)
	}()

	if entities.IsBookkeeping(rec.RecordType()) {
		return nil
	}

	c := newCascade(rec)
	err = e.store.WithinTx(ctx, func(ctx context.Context, repo repositories.GraphRepository) error {
		if err := e.destroyDependents(ctx, repo, rec, c); err != nil {
			return err
		}
		e.store.AfterCommit(ctx, func() { e.finishCascade(rec, c) })
		return nil
	})
	return e.cascadeFailed(rec, err)
}

func (e *Engine) cascadeFailed(root Record, err error) error {
	if err != nil {
		e.logger.Debug("cascade rolled back",
			zap.Stringer("record", EndpointOf(root)),
			zap.Error(err),
		)
	}
	return err
}

// finishCascade runs once the cascade transaction has committed
func (e *Engine) finishCascade(root Record, c *cascade) {
	root.Snapshots().Clear()
	for _, rec := range c.destroyed {
		rec.Snapshots().Clear()
	}

	e.recorder.RecordEdges(0, c.stats.edgesDeleted)
	e.logger.Debug("cascade finished",
		zap.Stringer("record", EndpointOf(root)),
		zap.Int("destroyed", len(c.destroyed)),
		zap.Int("edges_deleted", c.stats.edgesDeleted),
	)
}

func (e *Engine) destroyDependents(ctx context.Context, repo repositories.GraphRepository, rec Record, c *cascade) error {
	if entities.IsBookkeeping(rec.RecordType()) {
		return nil
	}

	// Collect dependents before the edges leading to them are gone
	var dependents []Record
	for _, desc := range e.registry.Relations(rec.RecordType()) {
		if !desc.DestroysDependents() {
			continue
		}
		snap, err := e.load(ctx, rec, desc)
		if err != nil {
			return err
		}
		dependents = append(dependents, snap.current...)
	}

	ep := EndpointOf(rec)
	edges, err := repo.Edges().FindByEndpoint(ctx, ep)
	if err != nil {
		return fmt.Errorf("failed to find edges of %s: %w", ep, err)
	}
	if len(edges) > 0 {
		ids := make([]int64, len(edges))
		for i, edge := range edges {
			ids[i] = edge.ID
		}
		deleted, err := repo.Edges().Delete(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to delete edges of %s: %w", ep, err)
		}
		c.stats.edgesDeleted += int(deleted)
	}

	for _, dep := range dependents {
		key := EndpointOf(dep)
		if key.ID <= 0 {
			continue
		}
		if _, ok := c.visited[key]; ok {
			continue
		}
		c.visited[key] = struct{}{}

		if entities.IsBookkeeping(dep.RecordType()) {
			continue
		}
		if e.destroyer == nil {
			return fmt.Errorf("failed to destroy dependent %s: %w", key, errNoDestroyer)
		}
		if err := e.destroyer.Destroy(ctx, dep); err != nil {
			return fmt.Errorf("failed to destroy dependent %s: %w", key, err)
		}
		c.destroyed = append(c.destroyed, dep)

		if err := e.destroyDependents(ctx, repo, dep, c); err != nil {
			return err
		}
	}

	return nil
}
