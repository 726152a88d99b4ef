package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asakaida/polylink/internal/entities"
	"github.com/asakaida/polylink/internal/repositories"
)

func TestEngine_Destroy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.world.add("person", 1)
	bob := env.world.add("person", 2)
	apollo := env.world.add("project", 1)
	zephyr := env.world.add("project", 2)
	p := env.world.add("note", 1)
	q := env.world.add("note", 2)
	acme := env.world.add("company", 1)

	require.NoError(t, env.engine.Add(ctx, apollo, "notes", p, q))
	require.NoError(t, env.engine.Add(ctx, apollo, "members", alice))
	require.NoError(t, env.engine.Save(ctx, apollo))
	require.NoError(t, env.engine.SetOne(ctx, p, "owner", acme))
	require.NoError(t, env.engine.Save(ctx, p))

	// Unrelated graph
	require.NoError(t, env.engine.Add(ctx, bob, "viewables", zephyr, acme))
	require.NoError(t, env.engine.Save(ctx, bob))

	require.NoError(t, env.engine.Destroy(ctx, apollo))

	assert.ElementsMatch(t, []entities.Endpoint{
		EndpointOf(apollo), EndpointOf(p), EndpointOf(q),
	}, env.world.destroyed)
	assert.True(t, env.world.has(EndpointOf(alice)), "members are not dependents")
	assert.True(t, env.world.has(EndpointOf(acme)))

	for _, rec := range []Record{apollo, p, q} {
		edges, err := env.store.Edges().FindByEndpoint(ctx, EndpointOf(rec))
		require.NoError(t, err)
		assert.Empty(t, edges, "edges of %s", EndpointOf(rec))
	}

	assert.Equal(t, []string{"person#viewables"}, env.linkNames(t, bob, zephyr))
	assert.Equal(t, []string{"person#viewables"}, env.linkNames(t, bob, acme))

	assert.False(t, apollo.Snapshots().Loaded("notes"))

	alicesProjects, err := env.engine.Get(ctx, newRecord("person", 1), "viewables")
	require.NoError(t, err)
	assert.Empty(t, alicesProjects)
}

func TestEngine_DestroyDependents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apollo := env.world.add("project", 1)
	p := env.world.add("note", 1)

	require.NoError(t, env.engine.Add(ctx, apollo, "notes", p))
	require.NoError(t, env.engine.Save(ctx, apollo))

	// The record itself was deleted by the caller's own hook
	env.world.drop(EndpointOf(apollo))
	require.NoError(t, env.engine.DestroyDependents(ctx, apollo))

	assert.Equal(t, []entities.Endpoint{EndpointOf(p)}, env.world.destroyed)
	assert.Nil(t, env.linkNames(t, apollo, p))
}

func TestEngine_DestroyRollsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apollo := env.world.add("project", 1)
	alice := env.world.add("person", 1)
	p := env.world.add("note", 1)

	require.NoError(t, env.engine.Add(ctx, apollo, "notes", p))
	require.NoError(t, env.engine.Add(ctx, apollo, "members", alice))
	require.NoError(t, env.engine.Save(ctx, apollo))

	env.world.failOn = EndpointOf(p)
	err := env.engine.Destroy(ctx, apollo)
	require.ErrorIs(t, err, errDestroyFailed)

	assert.Equal(t, []string{"project#notes"}, env.linkNames(t, apollo, p))
	assert.Equal(t, []string{"project#members"}, env.linkNames(t, apollo, alice))

	ops := env.recorder.Collector().GetOperationMetrics()
	assert.Equal(t, uint64(1), ops.ErrorCounts["destroy"])
}

func TestEngine_DestroyInCallerTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	apollo := env.world.add("project", 1)
	p := env.world.add("note", 1)

	require.NoError(t, env.engine.Add(ctx, apollo, "notes", p))
	require.NoError(t, env.engine.Save(ctx, apollo))

	abort := errors.New("caller aborts")
	err := env.store.WithinTx(ctx, func(ctx context.Context, _ repositories.GraphRepository) error {
		require.NoError(t, env.engine.Destroy(ctx, apollo))
		return abort
	})
	require.ErrorIs(t, err, abort)

	assert.True(t, apollo.Snapshots().Loaded("notes"), "snapshots survive the rollback")
	assert.Equal(t, []string{"project#notes"}, env.linkNames(t, apollo, p))
	assert.Zero(t, env.recorder.Collector().GetChurnMetrics().EdgesDeleted)

	err = env.store.WithinTx(ctx, func(ctx context.Context, _ repositories.GraphRepository) error {
		return env.engine.Destroy(ctx, apollo)
	})
	require.NoError(t, err)
	assert.False(t, apollo.Snapshots().Loaded("notes"))
	assert.Nil(t, env.linkNames(t, apollo, p))
}

func TestEngine_DestroyCycle(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterType("person", "company"))
	_, err := registry.HasMany("person", "employers", RelationOptions{From: []string{"companies"}, Dependent: entities.DependentDestroy})
	require.NoError(t, err)
	_, err = registry.HasMany("company", "employees", RelationOptions{From: []string{"people"}, Dependent: entities.DependentDestroy})
	require.NoError(t, err)

	env := newTestEnv(t)
	w := newWorld()
	engine := NewEngine(env.store, registry, w, WithDestroyer(w))
	ctx := context.Background()

	alice := w.add("person", 1)
	acme := w.add("company", 1)

	require.NoError(t, engine.Add(ctx, alice, "employers", acme))
	require.NoError(t, engine.Save(ctx, alice))
	require.NoError(t, engine.Add(ctx, acme, "employees", alice))
	require.NoError(t, engine.Save(ctx, acme))

	require.NoError(t, engine.Destroy(ctx, alice))
	assert.Equal(t, []entities.Endpoint{EndpointOf(alice), EndpointOf(acme)}, w.destroyed)
}

func TestEngine_DestroyWithoutDestroyer(t *testing.T) {
	env := newTestEnv(t)
	engine := NewEngine(env.store, env.registry, env.world)

	err := engine.Destroy(context.Background(), env.world.add("project", 1))
	assert.ErrorIs(t, err, errNoDestroyer)
}

func TestEngine_DestroySkipsBookkeeping(t *testing.T) {
	env := newTestEnv(t)

	err := env.engine.DestroyDependents(context.Background(), newRecord(entities.EdgeType, 1))
	assert.NoError(t, err)
	assert.Empty(t, env.world.destroyed)
}
