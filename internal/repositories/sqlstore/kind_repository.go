package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asakaida/polylink/internal/entities"
)

type kindRepository struct {
	q       querier
	dialect Dialect
}

// GetOrCreate returns the kind for (owner, name), creating it on first use
func (r *kindRepository) GetOrCreate(ctx context.Context, owner entities.TypeName, name string) (*entities.RelationKind, error) {
	kind := &entities.RelationKind{Owner: owner, Name: name}
	if err := kind.Validate(); err != nil {
		return nil, fmt.Errorf("invalid relation kind: %w", err)
	}

	query := r.dialect.insertIgnore("relation_kinds",
		[]string{"owner", "name"},
		[]string{"owner", "name"},
	)
	if _, err := r.q.ExecContext(ctx, r.dialect.rebind(query), string(owner), name); err != nil {
		return nil, fmt.Errorf("failed to create relation kind: %w", err)
	}

	found, err := r.find(ctx, owner, name, r.dialect.lockingRead())
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("relation kind %s vanished after insert", kind)
	}

	return found, nil
}

// Find retrieves the kind for (owner, name), or nil if it was never created
func (r *kindRepository) Find(ctx context.Context, owner entities.TypeName, name string) (*entities.RelationKind, error) {
	return r.find(ctx, owner, name, "")
}

func (r *kindRepository) find(ctx context.Context, owner entities.TypeName, name, lock string) (*entities.RelationKind, error) {
	query := `SELECT id, owner, name FROM relation_kinds WHERE owner = ? AND name = ?` + lock

	var kind entities.RelationKind
	var kindOwner string
	err := r.q.QueryRowContext(ctx, r.dialect.rebind(query), string(owner), name).
		Scan(&kind.ID, &kindOwner, &kind.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find relation kind: %w", err)
	}
	kind.Owner = entities.TypeName(kindOwner)

	return &kind, nil
}

// List retrieves every kind ordered by owner and name
func (r *kindRepository) List(ctx context.Context) ([]*entities.RelationKind, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, owner, name FROM relation_kinds ORDER BY owner, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to read relation kinds: %w", err)
	}
	defer rows.Close()

	var kinds []*entities.RelationKind
	for rows.Next() {
		var kind entities.RelationKind
		var owner string
		if err := rows.Scan(&kind.ID, &owner, &kind.Name); err != nil {
			return nil, fmt.Errorf("failed to scan relation kind: %w", err)
		}
		kind.Owner = entities.TypeName(owner)
		kinds = append(kinds, &kind)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relation kinds: %w", err)
	}

	return kinds, nil
}
