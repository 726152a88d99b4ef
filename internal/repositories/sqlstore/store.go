// Package sqlstore implements the graph repositories on database/sql.
// The same queries serve PostgreSQL, MySQL and SQLite; Dialect covers the differences.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/polylink/internal/repositories"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// txState is the transaction carried by a context with the hooks waiting for its commit
type txState struct {
	tx          *sql.Tx
	afterCommit []func()
}

// WithTx returns a context carrying tx. Graph operations started with this
// context run inside tx instead of opening their own transaction. The caller
// owns tx and finishes it with Commit, or rolls it back.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, &txState{tx: tx})
}

func stateFromContext(ctx context.Context) *txState {
	state, _ := ctx.Value(txKey{}).(*txState)
	return state
}

// TxFromContext returns the transaction carried by ctx, or nil.
// Entity resolvers and destroyers use it to join the graph transaction.
func TxFromContext(ctx context.Context) *sql.Tx {
	if state := stateFromContext(ctx); state != nil {
		return state.tx
	}
	return nil
}

// AfterCommit runs fn once the transaction carried by ctx commits.
// Hooks of a rolled back transaction never run. Without a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	state := stateFromContext(ctx)
	if state == nil {
		fn()
		return
	}
	state.afterCommit = append(state.afterCommit, fn)
}

// Commit commits the transaction carried by a WithTx context and runs its AfterCommit hooks
func Commit(ctx context.Context) error {
	state := stateFromContext(ctx)
	if state == nil {
		return fmt.Errorf("no transaction in context")
	}

	if err := state.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	hooks := state.afterCommit
	state.afterCommit = nil
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Store implements GraphStore and GraphRepository on a SQL database
type Store struct {
	db      *sql.DB
	dialect Dialect
	q       querier
}

// New creates a new SQL graph store
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, q: db}
}

func (s *Store) bind(q querier) *Store {
	return &Store{db: s.db, dialect: s.dialect, q: q}
}

// Dialect returns the SQL dialect of the store
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Edges returns the edge repository
func (s *Store) Edges() repositories.EdgeRepository {
	return &edgeRepository{q: s.q, dialect: s.dialect}
}

// Kinds returns the relation kind repository
func (s *Store) Kinds() repositories.RelationKindRepository {
	return &kindRepository{q: s.q, dialect: s.dialect}
}

// Links returns the link repository
func (s *Store) Links() repositories.LinkRepository {
	return &linkRepository{q: s.q, dialect: s.dialect}
}

// Repository returns repositories bound to the transaction carried by ctx, if any
func (s *Store) Repository(ctx context.Context) repositories.GraphRepository {
	if tx := TxFromContext(ctx); tx != nil {
		return s.bind(tx)
	}
	return s
}

// WithinTx runs fn in a transaction, joining the one carried by ctx if present.
// A joined transaction is committed, and its AfterCommit hooks run, by its owner.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repo repositories.GraphRepository) error) error {
	if tx := TxFromContext(ctx); tx != nil {
		return fn(ctx, s.bind(tx))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txCtx := WithTx(ctx, tx)
	if err := fn(txCtx, s.bind(tx)); err != nil {
		return err
	}

	return Commit(txCtx)
}

// AfterCommit runs fn once the transaction carried by ctx commits
func (s *Store) AfterCommit(ctx context.Context, fn func()) {
	AfterCommit(ctx, fn)
}
