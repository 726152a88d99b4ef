package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/asakaida/polylink/internal/entities"
)

const edgeColumns = "e.id, e.first_type, e.first_id, e.second_type, e.second_id"

type edgeRepository struct {
	q       querier
	dialect Dialect
}

// FindByEndpoint retrieves every edge where ep occupies either side
func (r *edgeRepository) FindByEndpoint(ctx context.Context, ep entities.Endpoint) ([]*entities.Edge, error) {
	query := `
		SELECT ` + edgeColumns + `
		FROM edges e
		WHERE (e.first_type = ? AND e.first_id = ?)
			OR (e.second_type = ? AND e.second_id = ?)
		ORDER BY e.id
	`
	return r.query(ctx, query, string(ep.Type), ep.ID, string(ep.Type), ep.ID)
}

// FindByRelation retrieves edges touching ep linked to a kind named name.
// Forward lookups require the kind to be owned by ep's type, reverse lookups
// require any other owner.
func (r *edgeRepository) FindByRelation(ctx context.Context, ep entities.Endpoint, name string, reverse bool) ([]*entities.Edge, error) {
	compare := "="
	if reverse {
		compare = "<>"
	}

	query := `
		SELECT DISTINCT ` + edgeColumns + `
		FROM edges e
		INNER JOIN links l ON l.edge_id = e.id
		INNER JOIN relation_kinds k ON l.relation_kind_id = k.id
		WHERE k.owner ` + compare + ` ? AND k.name = ?
			AND ((e.first_type = ? AND e.first_id = ?)
				OR (e.second_type = ? AND e.second_id = ?))
		ORDER BY e.id
	`
	return r.query(ctx, query,
		string(ep.Type), name,
		string(ep.Type), ep.ID,
		string(ep.Type), ep.ID,
	)
}

// FindBetween retrieves the edge of an unordered pair, or nil if there is none
func (r *edgeRepository) FindBetween(ctx context.Context, a, b entities.Endpoint) (*entities.Edge, error) {
	edge, err := entities.NewEdge(a, b)
	if err != nil {
		return nil, fmt.Errorf("invalid edge: %w", err)
	}
	return r.findCanonical(ctx, edge, "")
}

func (r *edgeRepository) findCanonical(ctx context.Context, edge *entities.Edge, lock string) (*entities.Edge, error) {
	query := `
		SELECT ` + edgeColumns + `
		FROM edges e
		WHERE e.first_type = ? AND e.first_id = ?
			AND e.second_type = ? AND e.second_id = ?
	` + lock
	row := r.q.QueryRowContext(ctx, r.dialect.rebind(query),
		string(edge.First.Type), edge.First.ID,
		string(edge.Second.Type), edge.Second.ID,
	)

	found, err := scanEdge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find edge: %w", err)
	}

	return found, nil
}

// Create returns the canonical edge between a and b, inserting it if needed.
// The unique key on the canonical pair makes concurrent creators converge on one row.
func (r *edgeRepository) Create(ctx context.Context, a, b entities.Endpoint) (*entities.Edge, bool, error) {
	edge, err := entities.NewEdge(a, b)
	if err != nil {
		return nil, false, fmt.Errorf("invalid edge: %w", err)
	}

	query := r.dialect.insertIgnore("edges",
		[]string{"first_type", "first_id", "second_type", "second_id"},
		[]string{"first_type", "first_id", "second_type", "second_id"},
	)
	result, err := r.q.ExecContext(ctx, r.dialect.rebind(query),
		string(edge.First.Type), edge.First.ID,
		string(edge.Second.Type), edge.Second.ID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create edge: %w", err)
	}

	created := false
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		created = true
	}

	found, err := r.findCanonical(ctx, edge, r.dialect.lockingRead())
	if err != nil {
		return nil, false, err
	}
	if found == nil {
		return nil, false, fmt.Errorf("edge %s vanished after insert", edge)
	}

	return found, created, nil
}

// Delete removes edges by ID. Links referencing them are deleted first.
func (r *edgeRepository) Delete(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	pred, args := r.dialect.inIDs("edge_id", ids)
	if _, err := r.q.ExecContext(ctx, r.dialect.rebind("DELETE FROM links WHERE "+pred), args...); err != nil {
		return 0, fmt.Errorf("failed to delete links: %w", err)
	}

	pred, args = r.dialect.inIDs("id", ids)
	result, err := r.q.ExecContext(ctx, r.dialect.rebind("DELETE FROM edges WHERE "+pred), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete edges: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted edges: %w", err)
	}

	return n, nil
}

// DeleteOrphans removes edges that no link references any more
func (r *edgeRepository) DeleteOrphans(ctx context.Context, ids []int64) (int64, error) {
	if ids != nil && len(ids) == 0 {
		return 0, nil
	}

	query := `
		DELETE FROM edges
		WHERE NOT EXISTS (SELECT 1 FROM links l WHERE l.edge_id = edges.id)
	`
	var args []interface{}
	if ids != nil {
		pred, idArgs := r.dialect.inIDs("id", ids)
		query += " AND " + pred
		args = idArgs
	}

	result, err := r.q.ExecContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned edges: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count orphaned edges: %w", err)
	}

	return n, nil
}

func (r *edgeRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entities.Edge, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}
	defer rows.Close()

	var edges []*entities.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEdge(s scanner) (*entities.Edge, error) {
	var edge entities.Edge
	var firstType, secondType string
	if err := s.Scan(&edge.ID, &firstType, &edge.First.ID, &secondType, &edge.Second.ID); err != nil {
		return nil, err
	}
	edge.First.Type = entities.TypeName(firstType)
	edge.Second.Type = entities.TypeName(secondType)
	return &edge, nil
}
