package repositories

import (
	"context"

	"github.com/asakaida/polylink/internal/entities"
)

// EdgeRepository defines the interface for edge data access
type EdgeRepository interface {
	// FindByEndpoint retrieves every edge where ep occupies either side
	FindByEndpoint(ctx context.Context, ep entities.Endpoint) ([]*entities.Edge, error)

	// FindByRelation retrieves edges touching ep that are linked to a relation kind named name.
	// When reverse is false the kind must be owned by ep's type, otherwise by any other type.
	FindByRelation(ctx context.Context, ep entities.Endpoint, name string, reverse bool) ([]*entities.Edge, error)

	// FindBetween retrieves the edge of an unordered pair, or nil if there is none
	FindBetween(ctx context.Context, a, b entities.Endpoint) (*entities.Edge, error)

	// Create returns the edge between a and b, inserting it when it does not exist yet.
	// The boolean result is true when a new row was inserted.
	Create(ctx context.Context, a, b entities.Endpoint) (*entities.Edge, bool, error)

	// Delete removes edges by ID together with every link referencing them
	Delete(ctx context.Context, ids []int64) (int64, error)

	// DeleteOrphans removes edges among ids that have no links left.
	// A nil ids slice sweeps the whole table.
	DeleteOrphans(ctx context.Context, ids []int64) (int64, error)
}

// RelationKindRepository defines the interface for relation kind data access
type RelationKindRepository interface {
	// GetOrCreate returns the kind for (owner, name), creating it on first use
	GetOrCreate(ctx context.Context, owner entities.TypeName, name string) (*entities.RelationKind, error)

	// Find retrieves the kind for (owner, name), or nil if it was never created
	Find(ctx context.Context, owner entities.TypeName, name string) (*entities.RelationKind, error)

	// List retrieves every kind ordered by owner and name
	List(ctx context.Context) ([]*entities.RelationKind, error)
}

// LinkRepository defines the interface for link data access
type LinkRepository interface {
	// Link tags an edge with a kind. The boolean result is false when the link already existed.
	Link(ctx context.Context, edgeID, kindID int64) (bool, error)

	// Unlink removes links of the given edges. kindID 0 removes links of any kind.
	Unlink(ctx context.Context, edgeIDs []int64, kindID int64) (int64, error)

	// ListByEdge retrieves the links of one edge
	ListByEdge(ctx context.Context, edgeID int64) ([]*entities.Link, error)
}

// GraphRepository groups the repositories backing the association graph
type GraphRepository interface {
	Edges() EdgeRepository
	Kinds() RelationKindRepository
	Links() LinkRepository
}

// GraphStore hands out graph repositories and runs transactions
type GraphStore interface {
	// Repository returns repositories bound to the transaction carried by ctx, if any
	Repository(ctx context.Context) GraphRepository

	// WithinTx runs fn in a transaction. If ctx already carries a transaction,
	// fn joins it and the outer owner decides on commit or rollback.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo GraphRepository) error) error

	// AfterCommit runs fn once the transaction carried by ctx commits, or at once
	// when ctx carries none. Hooks of a rolled back transaction are dropped.
	AfterCommit(ctx context.Context, fn func())
}
