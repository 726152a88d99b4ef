package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/asakaida/polylink/internal/entities"
)

// EntityResolver loads live records by type and ID.
// Records that no longer exist are left out of the result.
type EntityResolver interface {
	Resolve(ctx context.Context, t entities.TypeName, ids []int64) ([]Record, error)
}

// ResolverFunc adapts a function to EntityResolver
type ResolverFunc func(ctx context.Context, t entities.TypeName, ids []int64) ([]Record, error)

// Resolve calls f
func (f ResolverFunc) Resolve(ctx context.Context, t entities.TypeName, ids []int64) ([]Record, error) {
	return f(ctx, t, ids)
}

// RecordDestroyer deletes the stored attributes of a record during a cascade.
// The ctx carries the graph transaction (see sqlstore.TxFromContext).
type RecordDestroyer interface {
	Destroy(ctx context.Context, rec Record) error
}

// DestroyerFunc adapts a function to RecordDestroyer
type DestroyerFunc func(ctx context.Context, rec Record) error

// Destroy calls f
func (f DestroyerFunc) Destroy(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Recorder receives engine metrics
type Recorder interface {
	RecordOperation(op string, d time.Duration, err error)
	RecordEdges(created, deleted int)
	RecordLinks(created, deleted int)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, time.Duration, error) {}
func (nopRecorder) RecordEdges(int, int)                         {}
func (nopRecorder) RecordLinks(int, int)                         {}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder Recorder) Option {
	return func(e *Engine) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

// WithDestroyer sets the collaborator deleting records during cascades.
// Destroy, and DestroyDependents reaching a dependent, fail without one.
func WithDestroyer(destroyer RecordDestroyer) Option {
	return func(e *Engine) {
		e.destroyer = destroyer
	}
}
