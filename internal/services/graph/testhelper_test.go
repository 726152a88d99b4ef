package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/asakaida/polylink/internal/entities"
	"github.com/asakaida/polylink/internal/infrastructure/metrics"
	"github.com/asakaida/polylink/internal/repositories/sqlstore"
)

// world is an in-memory attribute store standing in for the application's records
type world struct {
	mu        sync.Mutex
	live      map[entities.Endpoint]bool
	destroyed []entities.Endpoint
	failOn    entities.Endpoint
}

func newWorld() *world {
	return &world{live: make(map[entities.Endpoint]bool)}
}

func (w *world) add(t entities.TypeName, id int64) *testRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.live[entities.Endpoint{Type: t, ID: id}] = true
	return newRecord(t, id)
}

func (w *world) has(ep entities.Endpoint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.live[ep]
}

func (w *world) drop(ep entities.Endpoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.live, ep)
}

// Resolve returns fresh instances, the way a database load would
func (w *world) Resolve(ctx context.Context, t entities.TypeName, ids []int64) ([]Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []Record
	for i := len(ids) - 1; i >= 0; i-- {
		if w.live[entities.Endpoint{Type: t, ID: ids[i]}] {
			out = append(out, newRecord(t, ids[i]))
		}
	}
	return out, nil
}

func (w *world) Destroy(ctx context.Context, rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ep := EndpointOf(rec)
	if ep == w.failOn {
		return errDestroyFailed
	}
	delete(w.live, ep)
	w.destroyed = append(w.destroyed, ep)
	return nil
}

type testEnv struct {
	store    *sqlstore.Store
	registry *Registry
	world    *world
	recorder *metrics.Recorder
	engine   *Engine
}

// newTestEnv builds an engine over a migrated test database with these relations:
//
//	person  has_many viewables from [projects, companies]
//	person  has_many employers from [companies]
//	person  has_many clients   from [companies]
//	project has_many members   from [people]
//	project has_many notes     from [notes], dependent destroy
//	note    has_one  owner     from [person, company]
//	note    has_many projects  through notes
//	company has_many viewers   through viewables
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry := newTestRegistry(t)
	declare := []func() error{
		func() error {
			_, err := registry.HasMany("person", "viewables", RelationOptions{From: []string{"projects", "companies"}})
			return err
		},
		func() error {
			_, err := registry.HasMany("person", "employers", RelationOptions{From: []string{"companies"}})
			return err
		},
		func() error {
			_, err := registry.HasMany("person", "clients", RelationOptions{From: []string{"companies"}})
			return err
		},
		func() error {
			_, err := registry.HasMany("project", "members", RelationOptions{From: []string{"people"}})
			return err
		},
		func() error {
			_, err := registry.HasMany("project", "notes", RelationOptions{From: []string{"notes"}, Dependent: entities.DependentDestroy})
			return err
		},
		func() error {
			_, err := registry.HasOne("note", "owner", RelationOptions{From: []string{"person", "company"}})
			return err
		},
		func() error {
			_, err := registry.HasMany("note", "projects", RelationOptions{From: []string{"projects"}, Through: "notes"})
			return err
		},
		func() error {
			_, err := registry.HasMany("company", "viewers", RelationOptions{Through: "viewables"})
			return err
		},
	}
	for _, d := range declare {
		require.NoError(t, d())
	}

	env := &testEnv{
		store:    sqlstore.SetupTestStore(t),
		registry: registry,
		world:    newWorld(),
		recorder: metrics.NewRecorder(metrics.NewCollector(), nil),
	}
	env.engine = NewEngine(env.store, registry, env.world,
		WithLogger(zaptest.NewLogger(t)),
		WithRecorder(env.recorder),
		WithDestroyer(env.world),
	)
	return env
}

// linkNames returns the kind names linked to the edge between a and b, or nil if there is no edge
func (env *testEnv) linkNames(t *testing.T, a, b Record) []string {
	t.Helper()
	ctx := context.Background()

	edge, err := env.store.Edges().FindBetween(ctx, EndpointOf(a), EndpointOf(b))
	require.NoError(t, err)
	if edge == nil {
		return nil
	}

	kinds, err := env.store.Kinds().List(ctx)
	require.NoError(t, err)
	byID := make(map[int64]string, len(kinds))
	for _, k := range kinds {
		byID[k.ID] = k.String()
	}

	links, err := env.store.Links().ListByEdge(ctx, edge.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, byID[l.KindID])
	}
	return names
}
